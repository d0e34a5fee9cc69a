// Package roster resolves configured player names against a provider
// directory.
package roster

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/propline/internal/domain/model"
)

// ErrPlayerNotFound is returned when no directory entry matches a name.
var ErrPlayerNotFound = errors.New("player not found")

// Resolve finds the directory entry whose full name equals name, ignoring
// case and surrounding whitespace. The first match in directory order wins;
// there is no partial or fuzzy matching.
func Resolve(directory []model.Player, name string) (model.Player, error) {
	want := strings.TrimSpace(name)
	if want != "" {
		for _, p := range directory {
			if strings.EqualFold(p.FullName, want) {
				return p, nil
			}
		}
	}
	return model.Player{}, fmt.Errorf("%w: no player found for %q", ErrPlayerNotFound, name)
}
