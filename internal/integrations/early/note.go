package early

import "strings"

// TagToken returns the placeholder the API embeds in note text for a tag.
func TagToken(id ID) string {
	return "<{{|t|" + string(id) + "|}}>"
}

// MentionToken returns the placeholder the API embeds in note text for a
// mention.
func MentionToken(id ID) string {
	return "<{{|m|" + string(id) + "|}}>"
}

// FormatNote resolves tag and mention placeholders in a note into #key and
// @key labels. Tags without indices are not used in the text and stay
// unresolved. Tags are replaced before mentions, each in side-table order.
func FormatNote(n *Note) string {
	if n == nil {
		return ""
	}
	text := n.Text
	for _, tag := range n.Tags {
		if len(tag.Indices) == 0 {
			continue
		}
		text = strings.ReplaceAll(text, TagToken(tag.ID), "#"+tag.Key)
	}
	for _, m := range n.Mentions {
		text = strings.ReplaceAll(text, MentionToken(m.ID), "@"+m.Key)
	}
	return strings.TrimSpace(text)
}
