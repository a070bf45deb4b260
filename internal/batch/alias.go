package batch

import (
	"net/url"
	"strings"

	"facturador/internal/dates"
)

// Slugify turns free text into a file-name-safe tag: lowercased,
// accents stripped, runs of anything non-alphanumeric collapsed to a
// single underscore.
func Slugify(s string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range dates.Normalize(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// SourceAlias derives a vendor tag from the Entrada cell. For a URL it
// is the first label of the host ("cursor" for cursor.com); anything
// else is slugified as-is. Empty input falls back to "cursor".
func SourceAlias(entrada string) string {
	entrada = strings.TrimSpace(entrada)
	if entrada == "" {
		return "cursor"
	}

	if u, err := url.Parse(entrada); err == nil && u.Host != "" {
		host := strings.TrimPrefix(u.Hostname(), "www.")
		if label, _, found := strings.Cut(host, "."); found && label != "" {
			return Slugify(label)
		}
		if host != "" {
			return Slugify(host)
		}
	}

	if slug := Slugify(entrada); slug != "" {
		return slug
	}
	return "cursor"
}

// UserAlias derives a user tag from the Usuario cell: the local part
// for an email address, the whole value otherwise. Empty input falls
// back to "usuario".
func UserAlias(usuario string) string {
	usuario = strings.TrimSpace(usuario)
	if usuario == "" {
		return "usuario"
	}
	if local, _, found := strings.Cut(usuario, "@"); found && local != "" {
		usuario = local
	}
	if slug := Slugify(usuario); slug != "" {
		return slug
	}
	return "usuario"
}
