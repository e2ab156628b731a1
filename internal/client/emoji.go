package client

import "strings"

// emojiShortcuts are substituted into outgoing messages before encryption.
var emojiShortcuts = map[string]string{
	":)":  "🙂",
	":(":  "😢",
	":D":  "😄",
	":P":  "😛",
	":o":  "😮",
	":O":  "😮",
	"<3":  "❤️",
	":|":  "😐",
	";)":  "😉",
	":S":  "😕",
	":'(": "😢",
}

var emojiReplacer = buildEmojiReplacer()

func buildEmojiReplacer() *strings.Replacer {
	pairs := make([]string, 0, 2*len(emojiShortcuts))
	for shortcut, emoji := range emojiShortcuts {
		pairs = append(pairs, shortcut, emoji)
	}
	return strings.NewReplacer(pairs...)
}

func applyEmojiShortcuts(s string) string {
	return emojiReplacer.Replace(s)
}
