package handlers

import (
	"context"
	"fmt"
	"time"

	"engram/application/commands"
	"engram/application/ports"
	"engram/application/services"
	"engram/domain/config"
	"engram/domain/core/aggregates"
	"engram/domain/core/entities"
	"engram/domain/core/valueobjects"
	"engram/domain/events"
	pkgerrors "engram/pkg/errors"
	"go.uber.org/zap"
)

// SubmitTurnOrchestrator runs the full chat-turn pipeline. The user's
// lock is held for the whole turn, so per user there is exactly one
// writer. A turn either commits completely, fully paid, or leaves no
// trace at all.
type SubmitTurnOrchestrator struct {
	graphRepo   ports.GraphRepository
	messageRepo ports.MessageRepository
	extraction  *services.ExtractionService
	strategy    *services.StrategyService
	linker      *services.LinkerService
	profiles    *services.ProfileService
	accounting  *services.AccountingService
	registry    ports.ProviderRegistry
	locker      ports.UserLocker
	eventBus    ports.EventPublisher
	clock       ports.Clock
	usage       *services.UsageMetrics
	cfg         *config.DomainConfig
	logger      *zap.Logger
}

// NewSubmitTurnOrchestrator creates a new orchestrator instance
func NewSubmitTurnOrchestrator(
	graphRepo ports.GraphRepository,
	messageRepo ports.MessageRepository,
	extraction *services.ExtractionService,
	strategy *services.StrategyService,
	linker *services.LinkerService,
	profiles *services.ProfileService,
	accounting *services.AccountingService,
	registry ports.ProviderRegistry,
	locker ports.UserLocker,
	eventBus ports.EventPublisher,
	clock ports.Clock,
	usage *services.UsageMetrics,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *SubmitTurnOrchestrator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &SubmitTurnOrchestrator{
		graphRepo:   graphRepo,
		messageRepo: messageRepo,
		extraction:  extraction,
		strategy:    strategy,
		linker:      linker,
		profiles:    profiles,
		accounting:  accounting,
		registry:    registry,
		locker:      locker,
		eventBus:    eventBus,
		clock:       clock,
		usage:       usage,
		cfg:         cfg,
		logger:      logger,
	}
}

// Handle processes one chat turn
func (o *SubmitTurnOrchestrator) Handle(ctx context.Context, cmd commands.SubmitTurnCommand) (*commands.TurnResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	if err := o.locker.Lock(ctx, cmd.UserID); err != nil {
		return nil, err
	}
	defer o.locker.Unlock(cmd.UserID)

	graph, err := o.graphRepo.GetOrCreate(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}

	now := o.clock.Now()

	// Step 1: extract knowledge from the message
	analysis := o.extraction.Analyze(ctx, cmd.Message)
	if cmd.SkipMemory || (cmd.Confidential && o.cfg.ConfidentialSkipsLearning) {
		analysis.Facts = nil
		analysis.Preferences = nil
		analysis.Tasks = nil
	}

	// Step 2: retrieve relevant memory, widened by graph traversal.
	// A skip-memory turn is a plain prompt: nothing retrieved, nothing
	// learned, and the strategy stays neutral.
	var retrieved []aggregates.ScoredMemory
	record := entities.StrategyRecord{}
	if !cmd.SkipMemory {
		retrieved = graph.RankMemories(analysis.Terms, o.cfg.RetrievalLimit, now)
		seeds := make([]valueobjects.NodeID, 0, len(retrieved))
		for _, m := range retrieved {
			seeds = append(seeds, m.Node.ID())
		}
		neighborhood := graph.TraverseContext(seeds)
		retrieved = mergeRetrieved(retrieved, neighborhood, o.cfg.RetrievalLimit)

		// Step 3: pick the response strategy
		record = entities.RecordStrategy(o.strategy.Select(analysis.Terms, retrieved))
	}

	// Step 4: generate the reply. A failed generation degrades the turn
	// to a no-generation outcome; learning and accounting still run.
	reply, provider, degraded, err := o.generate(ctx, cmd, record, retrieved, graph)
	if err != nil {
		return nil, err
	}
	if degraded {
		record.Confidence = o.cfg.FailureConfidence
		record.Sources = nil
	}

	// Step 5: quote and pre-check the cycles cost before any mutation
	// is persisted; the turn is all-or-nothing
	newBytes := o.estimateNewBytes(cmd, analysis)
	cost, err := o.accounting.Quote(ctx, provider, newBytes)
	if err != nil {
		return nil, err
	}
	if err := o.accounting.Precheck(ctx, cmd.UserID, cost); err != nil {
		return nil, err
	}

	// Step 6: learn. Facts become memory nodes, the thread and profile
	// absorb the turn.
	stored := o.storeFacts(graph, analysis, cmd)
	threadID := o.updateThread(graph, analysis, retrieved, cmd, now)
	var changedFields []string
	if !cmd.SkipMemory {
		changedFields = o.profiles.Apply(graph.Profile(), graph.History(), analysis, now)
	}

	for _, m := range retrieved {
		// Retrieval that contributed to the reply counts as an access
		_ = graph.Touch(m.Node.ID())
	}

	// Step 7: commit graph, log and charge
	if err := o.graphRepo.Save(ctx, graph); err != nil {
		return nil, fmt.Errorf("failed to save graph: %w", err)
	}
	if !cmd.Confidential || !o.cfg.ConfidentialSkipsLearning {
		if err := o.appendMessages(ctx, cmd, analysis, record, retrieved, reply, provider, cost, threadID, now); err != nil {
			return nil, err
		}
	}
	account, err := o.accounting.Charge(ctx, cmd.UserID, cost)
	if err != nil {
		return nil, err
	}

	if o.usage != nil {
		o.usage.RecordQuery()
		o.usage.RecordStorage(uint64(newBytes))
	}

	o.publishTurnEvents(ctx, graph, cmd, threadID, analysis, stored, record, cost, account.Balance(), now)

	referenced := make([]string, 0, len(retrieved))
	for _, m := range retrieved {
		referenced = append(referenced, m.Node.ID().String())
	}

	o.logger.Info("turn processed",
		zap.String("userID", cmd.UserID),
		zap.String("strategy", string(record.Kind)),
		zap.Int("factsStored", stored),
		zap.Int("memoriesUsed", len(retrieved)),
		zap.Uint64("cyclesCharged", cost),
		zap.Strings("profileFields", changedFields),
	)

	return &commands.TurnResult{
		Reply:              reply,
		Strategy:           record,
		ReferencedMemories: referenced,
		FactsStored:        stored,
		CyclesCharged:      cost,
		ThreadID:           threadID.String(),
		Sentiment:          string(analysis.Sentiment),
	}, nil
}

// generate produces the assistant reply. A provider call failure does
// not fail the turn: the reply comes back empty with degraded set, and
// the extraction results obtained before the failure survive.
func (o *SubmitTurnOrchestrator) generate(
	ctx context.Context,
	cmd commands.SubmitTurnCommand,
	record entities.StrategyRecord,
	retrieved []aggregates.ScoredMemory,
	graph *aggregates.PersonalKnowledgeGraph,
) (string, string, bool, error) {
	generator, err := o.registry.Generator(cmd.Provider)
	if err != nil {
		return "", "", false, pkgerrors.NewValidationError(err.Error())
	}

	memoryContext := make([]string, 0, len(retrieved))
	for _, m := range retrieved {
		memoryContext = append(memoryContext, m.Node.Content())
	}

	req := ports.GenerationRequest{
		UserMessage:   cmd.Message,
		MemoryContext: memoryContext,
		ProfileHints:  profileHints(graph.Profile()),
		Style:         cmd.AssistantStyle,
		Strategy:      record,
		History:       o.recentHistory(ctx, cmd),
	}

	result, err := generator.Generate(ctx, req)
	if err != nil {
		o.logger.Warn("generation failed, continuing without a reply",
			zap.String("provider", generator.Name()),
			zap.Error(err),
		)
		return "", generator.Name(), true, nil
	}
	return result.Content, generator.Name(), false, nil
}

// historyWindow bounds how many prior messages feed the generation prompt
const historyWindow = 6

// recentHistory loads the conversational tail for prompt continuity:
// the thread's messages when a thread was named, the latest messages
// otherwise. A load failure degrades to no history.
func (o *SubmitTurnOrchestrator) recentHistory(ctx context.Context, cmd commands.SubmitTurnCommand) []*entities.EnhancedChatMessage {
	if cmd.ThreadID != "" {
		threadID, err := valueobjects.NewThreadIDFromString(cmd.ThreadID)
		if err == nil {
			messages, err := o.messageRepo.GetByThread(ctx, cmd.UserID, threadID)
			if err != nil {
				o.logger.Warn("failed to load thread history", zap.Error(err))
				return nil
			}
			if len(messages) > historyWindow {
				messages = messages[len(messages)-historyWindow:]
			}
			return messages
		}
	}

	messages, err := o.messageRepo.GetByUserID(ctx, cmd.UserID, historyWindow, 0)
	if err != nil {
		o.logger.Warn("failed to load recent history", zap.Error(err))
		return nil
	}
	// GetByUserID returns newest first; the prompt wants oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages
}

// storeFacts turns remember-worthy facts into memory nodes and links
// them into the graph. Returns how many nodes were stored.
func (o *SubmitTurnOrchestrator) storeFacts(
	graph *aggregates.PersonalKnowledgeGraph,
	analysis *services.MessageAnalysis,
	cmd commands.SubmitTurnCommand,
) int {
	stored := 0
	for _, fact := range analysis.Facts {
		if !fact.ShouldRemember || fact.Confidence < o.cfg.MinRememberConfidence {
			continue
		}
		node, err := entities.NewMemoryNode(cmd.UserID, entities.NodeTypeForFact(fact.FactType), fact.Fact, o.cfg)
		if err != nil {
			o.logger.Warn("failed to build memory node from fact", zap.Error(err))
			continue
		}
		for _, ent := range analysis.Entities {
			_ = node.AddTag(ent.Name, o.cfg)
		}
		for _, pref := range analysis.Preferences {
			if pref.Preference == fact.Fact && pref.Category != "stated" {
				_ = node.AddTag(pref.Category, o.cfg)
			}
		}
		if err := graph.AddNode(node); err != nil {
			o.logger.Warn("failed to add memory node", zap.Error(err))
			continue
		}
		o.boostOverConflicts(graph, node)
		o.linker.LinkNewNode(graph, node)
		stored++
	}
	return stored
}

// boostOverConflicts keeps both sides of a preference conflict but
// raises the newer node's importance, so retrieval ranks the latest
// statement first instead of overwriting the old one
func (o *SubmitTurnOrchestrator) boostOverConflicts(graph *aggregates.PersonalKnowledgeGraph, node *entities.MemoryNode) {
	if node.Type() != entities.NodeTypePreference {
		return
	}
	for _, existing := range graph.Nodes() {
		if existing.ID().Equals(node.ID()) || existing.Type() != entities.NodeTypePreference {
			continue
		}
		if existing.Content() == node.Content() || !sharesCategoryTag(existing, node) {
			continue
		}
		node.Boost(o.cfg.ConflictRecencyBoost, o.cfg)
		return
	}
}

func sharesCategoryTag(a, b *entities.MemoryNode) bool {
	for _, tag := range a.Tags() {
		if b.HasTag(tag) {
			return true
		}
	}
	return false
}

// updateThread folds the turn into its conversation thread, when one
// was named
func (o *SubmitTurnOrchestrator) updateThread(
	graph *aggregates.PersonalKnowledgeGraph,
	analysis *services.MessageAnalysis,
	retrieved []aggregates.ScoredMemory,
	cmd commands.SubmitTurnCommand,
	now time.Time,
) valueobjects.ThreadID {
	if cmd.ThreadID == "" {
		return valueobjects.ThreadID{}
	}
	threadID, err := valueobjects.NewThreadIDFromString(cmd.ThreadID)
	if err != nil {
		return valueobjects.ThreadID{}
	}

	thread, err := graph.EnsureThread(threadID)
	if err != nil {
		o.logger.Warn("failed to ensure thread", zap.Error(err))
		return valueobjects.ThreadID{}
	}

	thread.RecordMessage(analysis.Topic, analysis.Sentiment)
	for _, ent := range analysis.Entities {
		thread.MergeEntity(ent, o.cfg)
	}
	for _, task := range analysis.Tasks {
		thread.UpsertTask(task.Description, task.Status, services.ResolveDue(task.DuePhrase, now), o.cfg)
	}
	for _, m := range retrieved {
		thread.LinkMemory(m.Node.ID())
		m.Node.RecordConversation(threadID)
	}
	return threadID
}

// appendMessages writes the user turn and the assistant reply to the
// conversation log
func (o *SubmitTurnOrchestrator) appendMessages(
	ctx context.Context,
	cmd commands.SubmitTurnCommand,
	analysis *services.MessageAnalysis,
	record entities.StrategyRecord,
	retrieved []aggregates.ScoredMemory,
	reply, provider string,
	cost uint64,
	threadID valueobjects.ThreadID,
	now time.Time,
) error {
	referenced := make([]valueobjects.NodeID, 0, len(retrieved))
	for _, m := range retrieved {
		referenced = append(referenced, m.Node.ID())
	}
	var threadRef *valueobjects.ThreadID
	if !threadID.IsZero() {
		threadRef = &threadID
	}
	var onChain *bool
	if cmd.StoreOnChain {
		onChain = &cmd.StoreOnChain
	}

	userMsg := &entities.EnhancedChatMessage{
		Role:            "user",
		Content:         cmd.Message,
		Provider:        provider,
		Timestamp:       now,
		ExtractedFacts:  analysis.Facts,
		UserSentiment:   analysis.Sentiment,
		ContextThreadID: threadRef,
		StoredOnChain:   onChain,
	}
	if err := o.messageRepo.Append(ctx, cmd.UserID, userMsg); err != nil {
		return fmt.Errorf("failed to append user message: %w", err)
	}

	assistantMsg := &entities.EnhancedChatMessage{
		Role:               "assistant",
		Content:            reply,
		Provider:           provider,
		Timestamp:          now,
		CyclesCost:         &cost,
		LearnedPreferences: analysis.Preferences,
		ReferencedMemories: referenced,
		ResponseStrategy:   &record,
		UserSentiment:      analysis.Sentiment,
		ContextThreadID:    threadRef,
		StoredOnChain:      onChain,
	}
	if err := o.messageRepo.Append(ctx, cmd.UserID, assistantMsg); err != nil {
		return fmt.Errorf("failed to append assistant message: %w", err)
	}
	return nil
}

// publishTurnEvents emits the graph's accumulated events plus the turn
// summary. Publishing is best effort; the turn already committed.
func (o *SubmitTurnOrchestrator) publishTurnEvents(
	ctx context.Context,
	graph *aggregates.PersonalKnowledgeGraph,
	cmd commands.SubmitTurnCommand,
	threadID valueobjects.ThreadID,
	analysis *services.MessageAnalysis,
	stored int,
	record entities.StrategyRecord,
	cost uint64,
	balance uint64,
	now time.Time,
) {
	pending := graph.GetUncommittedEvents()
	pending = append(pending, events.NewTurnProcessed(
		cmd.UserID,
		threadID.String(),
		len(analysis.Facts),
		stored,
		string(record.Kind),
		cost,
		now,
	))
	pending = append(pending, events.NewCyclesDebited(cmd.UserID, cost, balance, now))

	if err := o.eventBus.PublishBatch(ctx, pending); err != nil {
		o.logger.Warn("failed to publish turn events", zap.Error(err))
	}
	graph.MarkEventsAsCommitted()
}

func mergeRetrieved(primary, secondary []aggregates.ScoredMemory, limit int) []aggregates.ScoredMemory {
	seen := make(map[string]bool, len(primary))
	for _, m := range primary {
		seen[m.Node.ID().String()] = true
	}
	for _, m := range secondary {
		if len(primary) >= limit {
			break
		}
		if seen[m.Node.ID().String()] {
			continue
		}
		seen[m.Node.ID().String()] = true
		primary = append(primary, m)
	}
	return primary
}

func profileHints(profile *entities.UserProfile) []string {
	var hints []string
	if profile.PreferredName != "" {
		hints = append(hints, "call the user "+profile.PreferredName)
	} else if profile.Name != "" {
		hints = append(hints, "the user's name is "+profile.Name)
	}
	if len(profile.Interests) > 0 {
		hints = append(hints, "interests: "+joinFirst(profile.Interests, 5))
	}
	if profile.ResponsePreferences.StepByStep {
		hints = append(hints, "prefers step by step explanations")
	}
	if profile.ResponsePreferences.Quick {
		hints = append(hints, "prefers short answers")
	}
	return hints
}

func joinFirst(items []string, n int) string {
	if len(items) > n {
		items = items[:n]
	}
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += item
	}
	return out
}

// estimateNewBytes sizes the fresh data this turn will persist
func (o *SubmitTurnOrchestrator) estimateNewBytes(cmd commands.SubmitTurnCommand, analysis *services.MessageAnalysis) int {
	bytes := len(cmd.Message)
	for _, fact := range analysis.Facts {
		if fact.ShouldRemember && fact.Confidence >= o.cfg.MinRememberConfidence {
			bytes += len(fact.Fact)
		}
	}
	return bytes
}
