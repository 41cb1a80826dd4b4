package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pimkit/pimkit/internal/attribute"
)

func TestName_FallbackChain(t *testing.T) {
	labeled := Entity{
		ID:     "b1",
		Labels: attribute.LocalizedText{"de": "Marke", "en": "Brand"},
	}
	assert.Equal(t, "Marke", Name(labeled, "", "de"))
	// Missing language falls back through the label map before fields.
	assert.Equal(t, "Brand", Name(labeled, "", "fr"))

	unlabeled := Entity{
		ID:     "b2",
		Fields: map[string]any{"title": "Acme GmbH", "name": "Acme"},
	}
	assert.Equal(t, "Acme GmbH", Name(unlabeled, "title", "en"))
	assert.Equal(t, "Acme", Name(unlabeled, "missing", "en"))
	assert.Equal(t, "b3", Name(Entity{ID: "b3"}, "", "en"))
}
