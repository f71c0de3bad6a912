package security

import (
	"cmp"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"slices"

	"github.com/forest6511/passctl/pkg/store"
)

// DuplicateGroup is a set of entries sharing one password.
type DuplicateGroup struct {
	Names []string
}

// Duplicates groups entries by password, largest group first. Passwords
// are compared through an HMAC keyed for this Analyzer only, so the
// digests are useless outside the process.
func (a *Analyzer) Duplicates(entries []store.Entry) []DuplicateGroup {
	groups := make(map[string][]string)
	var order []string
	for _, e := range entries {
		if e.Secret.Len() == 0 {
			continue
		}
		digest := a.digest(e.Secret.Expose())
		if _, seen := groups[digest]; !seen {
			order = append(order, digest)
		}
		groups[digest] = append(groups[digest], e.Name)
	}

	var dups []DuplicateGroup
	for _, digest := range order {
		if names := groups[digest]; len(names) > 1 {
			dups = append(dups, DuplicateGroup{Names: names})
		}
	}
	slices.SortStableFunc(dups, func(x, y DuplicateGroup) int {
		return cmp.Compare(len(y.Names), len(x.Names))
	})
	return dups
}

func (a *Analyzer) digest(password []byte) string {
	h := hmac.New(sha256.New, a.key)
	h.Write(password)
	return hex.EncodeToString(h.Sum(nil))
}
