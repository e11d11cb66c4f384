package lineage

import (
	"github.com/camden-git/familytreebackend/models"
)

// DeriveSiblings returns sibling edges for every pair of children sharing at least one
// parent. Siblings are never stored; they are derived from parent edges when read.
func DeriveSiblings(relationships []models.Relationship) []models.Relationship {
	var parents []string
	childrenOf := make(map[string][]string)
	treeOf := make(map[string]string)
	for _, rel := range relationships {
		r := rel.Normalized()
		if r.Type != models.RelationshipParent {
			continue
		}
		if _, ok := childrenOf[r.FromID]; !ok {
			parents = append(parents, r.FromID)
			treeOf[r.FromID] = r.TreeID
		}
		childrenOf[r.FromID] = append(childrenOf[r.FromID], r.ToID)
	}

	var siblings []models.Relationship
	seen := make(map[string]bool)
	for _, parent := range parents {
		kids := childrenOf[parent]
		for i := 0; i < len(kids); i++ {
			for j := i + 1; j < len(kids); j++ {
				a, b := kids[i], kids[j]
				if a == b {
					continue
				}
				if b < a {
					a, b = b, a
				}
				edge := models.Relationship{
					ID:     "sibling:" + a + ":" + b,
					TreeID: treeOf[parent],
					FromID: a,
					ToID:   b,
					Type:   models.RelationshipSibling,
				}
				if seen[edge.Key()] {
					continue
				}
				seen[edge.Key()] = true
				siblings = append(siblings, edge)
			}
		}
	}
	return siblings
}
