// Package mention converts "@username" references into stored mention
// tokens and back into display segments.
//
// Stored form is "[mention:<user-id>]", case-sensitive, matched greedily and
// without overlap. Candidate usernames are runs of Unicode letters, marks,
// digits, '_' and '-'.
package mention

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	tokenPrefix = "[mention:"
	tokenSuffix = "]"
)

// ErrReservedToken is returned by Encode when raw text already contains
// token-shaped text. Stored tokens may only come from resolved usernames.
var ErrReservedToken = errors.New("mention: body contains a reserved mention token")

var (
	tokenPattern     = regexp.MustCompile(`\[mention:([^\[\]\s]+)\]`)
	candidatePattern = regexp.MustCompile(`@([\p{L}\p{M}\p{N}_-]+)`)
)

// Resolver maps usernames to user ids in one batch. Usernames without a
// match are simply absent from the result.
type Resolver interface {
	ResolveUsernames(ctx context.Context, usernames []string) (map[string]string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, usernames []string) (map[string]string, error)

// ResolveUsernames calls f.
func (f ResolverFunc) ResolveUsernames(ctx context.Context, usernames []string) (map[string]string, error) {
	return f(ctx, usernames)
}

// Token returns the stored token for a user id.
func Token(userID string) string {
	return tokenPrefix + userID + tokenSuffix
}

// Encode replaces every "@candidate" in raw whose candidate exactly matches a
// known username with that user's token. Unknown candidates stay literal.
// An '@' directly preceded by a letter or digit (an e-mail address) is not a
// mention. Raw text containing a literal token fails with ErrReservedToken.
func Encode(ctx context.Context, raw string, resolver Resolver) (string, error) {
	if tokenPattern.MatchString(raw) {
		return "", ErrReservedToken
	}
	matches := candidatePattern.FindAllStringSubmatchIndex(raw, -1)
	if len(matches) == 0 {
		return raw, nil
	}

	names := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	kept := matches[:0]
	for _, m := range matches {
		if !mentionBoundary(raw, m[0]) {
			continue
		}
		kept = append(kept, m)
		name := raw[m[2]:m[3]]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	if len(names) == 0 {
		return raw, nil
	}

	ids, err := resolver.ResolveUsernames(ctx, names)
	if err != nil {
		return "", fmt.Errorf("resolve mentions: %w", err)
	}

	var b strings.Builder
	b.Grow(len(raw))
	last := 0
	for _, m := range kept {
		id, ok := ids[raw[m[2]:m[3]]]
		if !ok || id == "" {
			continue
		}
		b.WriteString(raw[last:m[0]])
		b.WriteString(Token(id))
		last = m[1]
	}
	b.WriteString(raw[last:])
	return b.String(), nil
}

func mentionBoundary(s string, at int) bool {
	if at == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:at])
	return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
}

// ExtractTokens returns the distinct user ids referenced by tokens across
// the given bodies, in order of first appearance.
func ExtractTokens(bodies ...string) []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, body := range bodies {
		for _, m := range tokenPattern.FindAllStringSubmatch(body, -1) {
			if _, ok := seen[m[1]]; ok {
				continue
			}
			seen[m[1]] = struct{}{}
			ids = append(ids, m[1])
		}
	}
	return ids
}

// ActivePrefix returns the partial username being typed at the end of text,
// e.g. "hello @ali" yields "ali". It is used to drive suggestions.
func ActivePrefix(text string) (string, bool) {
	at := strings.LastIndexByte(text, '@')
	if at < 0 || !mentionBoundary(text, at) {
		return "", false
	}
	rest := text[at+1:]
	if rest == "" {
		return "", false
	}
	loc := candidatePattern.FindStringIndex(text[at:])
	if loc == nil || loc[0] != 0 || loc[1] != len(text)-at {
		return "", false
	}
	return rest, true
}
