package gen

import (
	"strings"
	"sync"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	rules = inflect.NewDefaultRuleset()

	acronymsMu sync.RWMutex
	acronyms   = map[string]struct{}{
		"API": {}, "ASCII": {}, "CPU": {}, "CSS": {}, "DNS": {}, "EOF": {}, "GUID": {},
		"HTML": {}, "HTTP": {}, "HTTPS": {}, "ID": {}, "IP": {}, "JSON": {}, "LHS": {},
		"QPS": {}, "RAM": {}, "RHS": {}, "RPC": {}, "SLA": {}, "SMTP": {}, "SQL": {},
		"SSH": {}, "TCP": {}, "TLS": {}, "TTL": {}, "UDP": {}, "UI": {}, "UID": {},
		"URI": {}, "URL": {}, "UTF8": {}, "UUID": {}, "VM": {}, "XML": {}, "XMPP": {},
		"XSRF": {}, "XSS": {},
	}
)

// AddAcronym adds a word rendered in upper case by generated identifiers.
func AddAcronym(word string) {
	acronymsMu.Lock()
	acronyms[strings.ToUpper(word)] = struct{}{}
	acronymsMu.Unlock()
}

func isAcronym(word string) bool {
	acronymsMu.RLock()
	_, ok := acronyms[strings.ToUpper(word)]
	acronymsMu.RUnlock()
	return ok
}

func isSeparator(r rune) bool {
	return r == '_' || r == '-' || unicode.IsSpace(r)
}

// pascal converts a snake_case name to PascalCase.
//
//	pascal("user_id") == "UserID"
func pascal(s string) string {
	words := strings.FieldsFunc(s, isSeparator)
	// Casers keep state and are not shared.
	title := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	for _, w := range words {
		if isAcronym(w) {
			b.WriteString(strings.ToUpper(w))
			continue
		}
		b.WriteString(title.String(w))
	}
	return b.String()
}

// structName returns the record struct name of a table.
//
//	structName("blog_posts") == "BlogPost"
func structName(table string) string {
	words := strings.FieldsFunc(table, isSeparator)
	if n := len(words); n > 0 {
		words[n-1] = rules.Singularize(words[n-1])
	}
	return pascal(strings.Join(words, "_"))
}

// receiver returns the receiver name of a type.
func receiver(name string) string {
	for _, r := range name {
		return string(unicode.ToLower(r))
	}
	return "r"
}
