package pipeline

import (
	"strings"

	"github.com/thereayou/workspace-relay/internal/models"
)

// Classification is the routing decision for an incoming message.
type Classification struct {
	Category  models.Category
	FileRoute bool
}

// Classify derives the broad category from the client-declared type. An
// absent type or "text" takes the text route; anything else is a file whose
// category comes from the MIME prefix, with unknown prefixes degrading to text.
func Classify(declaredType string) Classification {
	if declaredType == "" || declaredType == "text" {
		return Classification{Category: models.CategoryText}
	}

	c := Classification{Category: models.CategoryText, FileRoute: true}
	switch {
	case strings.HasPrefix(declaredType, "image/"):
		c.Category = models.CategoryImage
	case strings.HasPrefix(declaredType, "video/"):
		c.Category = models.CategoryVideo
	case strings.HasPrefix(declaredType, "audio/"):
		c.Category = models.CategoryAudio
	}
	return c
}
