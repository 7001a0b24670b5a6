package services

import (
	"sort"
	"strings"

	"engram/domain/config"
	"engram/domain/core/aggregates"
	"engram/domain/core/entities"
	"engram/domain/core/valueobjects"
	"go.uber.org/zap"
)

// LinkerService discovers connections for newly stored memories. It
// scores every existing node by term overlap with the new node and
// links the best matches, so related knowledge stays reachable through
// graph traversal.
type LinkerService struct {
	cfg    *config.DomainConfig
	logger *zap.Logger
}

// NewLinkerService creates a linker service
func NewLinkerService(cfg *config.DomainConfig, logger *zap.Logger) *LinkerService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &LinkerService{
		cfg:    cfg,
		logger: logger,
	}
}

const (
	maxAutoLinks        = 5
	similarityThreshold = 0.3
)

// LinkNewNode connects a just-added node to its most similar existing
// nodes. Returns how many edges were created or strengthened.
func (s *LinkerService) LinkNewNode(graph *aggregates.PersonalKnowledgeGraph, node *entities.MemoryNode) int {
	sourceWords := extractWords(node.Content())
	sourceTags := make(map[string]bool)
	for _, tag := range node.Tags() {
		sourceTags[tag] = true
	}
	if len(sourceWords) == 0 && len(sourceTags) == 0 {
		return 0
	}

	type candidate struct {
		id         valueobjects.NodeID
		similarity float64
		rel        aggregates.RelationshipType
	}

	var candidates []candidate
	for _, target := range graph.Nodes() {
		if target.ID().Equals(node.ID()) {
			continue
		}
		similarity := s.similarity(target, sourceWords, sourceTags)
		if similarity <= similarityThreshold {
			continue
		}
		candidates = append(candidates, candidate{
			id:         target.ID(),
			similarity: similarity,
			rel:        relationshipFor(node.Type(), target.Type()),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].similarity != candidates[j].similarity {
			return candidates[i].similarity > candidates[j].similarity
		}
		return candidates[i].id.String() < candidates[j].id.String()
	})
	if len(candidates) > maxAutoLinks {
		candidates = candidates[:maxAutoLinks]
	}

	linked := 0
	for _, c := range candidates {
		if _, err := graph.Link(node.ID(), c.id, c.rel, c.similarity, "auto-linked"); err != nil {
			s.logger.Warn("failed to auto-link memory",
				zap.Error(err),
				zap.String("source", node.ID().String()),
				zap.String("target", c.id.String()),
			)
			continue
		}
		linked++
	}

	if linked > 0 {
		s.logger.Debug("auto-linked new memory",
			zap.String("nodeID", node.ID().String()),
			zap.Int("edges", linked),
		)
	}
	return linked
}

// similarity scores term and tag overlap between the new node and a target
func (s *LinkerService) similarity(target *entities.MemoryNode, sourceWords, sourceTags map[string]bool) float64 {
	total := len(sourceWords) + len(sourceTags)
	if total == 0 {
		return 0
	}

	matches := 0
	targetWords := extractWords(target.Content())
	for word := range sourceWords {
		if targetWords[word] {
			matches++
		}
	}
	for _, tag := range target.Tags() {
		if sourceTags[tag] {
			matches++
		}
	}

	similarity := float64(matches) / float64(total)
	if similarity > 1.0 {
		similarity = 1.0
	}
	return similarity
}

// relationshipFor picks the edge type implied by the node types at
// each end
func relationshipFor(source, target entities.NodeType) aggregates.RelationshipType {
	switch {
	case source == entities.NodeTypeGoal && target == entities.NodeTypeExperience:
		return aggregates.RelationshipLeadsTo
	case source == entities.NodeTypeExperience && target == entities.NodeTypeGoal:
		return aggregates.RelationshipCausedBy
	case source == entities.NodeTypeExperience && target == entities.NodeTypeKnowledge:
		return aggregates.RelationshipExampleOf
	case source == entities.NodeTypeKnowledge && target == entities.NodeTypeGoal:
		return aggregates.RelationshipUsedFor
	case source == entities.NodeTypeContext:
		return aggregates.RelationshipPartOf
	default:
		return aggregates.RelationshipRelated
	}
}

// extractWords tokenizes text into lowercase words for fast lookup
func extractWords(text string) map[string]bool {
	words := make(map[string]bool)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		cleaned := strings.Trim(token, ".,!?;:\"'()[]{}#@$%^&*+=<>/\\|`~")
		if len(cleaned) > 2 && !stopwords[cleaned] {
			words[cleaned] = true
		}
	}
	return words
}
