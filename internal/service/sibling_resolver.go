package service

import "github.com/noah-isme/classroom-sync-api/internal/models"

// SiblingsOf returns every other class whose display name equals class.Name.
// The name is the only identifying key: two classes named "2A" are the same
// physical roster whatever their subject. The result never contains class
// itself and is empty (not nil) when nothing matches.
func SiblingsOf(class models.ClassRoom, all []models.ClassRoom) []models.ClassRoom {
	siblings := make([]models.ClassRoom, 0)
	for _, candidate := range all {
		if candidate.ID == class.ID {
			continue
		}
		if candidate.Name == class.Name {
			siblings = append(siblings, candidate)
		}
	}
	return siblings
}
