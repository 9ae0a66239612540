// Package bible holds the static book catalog the rest of the service
// keys progress and audio paths against.
package bible

import "strings"

// Voice presets the narrations were rendered with.
const (
	VoiceAria       = "aria"
	VoiceHeartsease = "heartsease"
)

// IsValidVoice reports whether v names a known voice preset.
func IsValidVoice(v string) bool {
	return v == VoiceAria || v == VoiceHeartsease
}

// chapterCounts maps book id to its chapter count for all 66 books.
var chapterCounts = map[string]int{
	"genesis":         50,
	"exodus":          40,
	"leviticus":       27,
	"numbers":         36,
	"deuteronomy":     34,
	"joshua":          24,
	"judges":          21,
	"ruth":            4,
	"1-samuel":        31,
	"2-samuel":        24,
	"1-kings":         22,
	"2-kings":         25,
	"1-chronicles":    29,
	"2-chronicles":    36,
	"ezra":            10,
	"nehemiah":        13,
	"esther":          10,
	"job":             42,
	"psalms":          150,
	"proverbs":        31,
	"ecclesiastes":    12,
	"song-of-solomon": 8,
	"isaiah":          66,
	"jeremiah":        52,
	"lamentations":    5,
	"ezekiel":         48,
	"daniel":          12,
	"hosea":           14,
	"joel":            3,
	"amos":            9,
	"obadiah":         1,
	"jonah":           4,
	"micah":           7,
	"nahum":           3,
	"habakkuk":        3,
	"zephaniah":       3,
	"haggai":          2,
	"zechariah":       14,
	"malachi":         4,
	"matthew":         28,
	"mark":            16,
	"luke":            24,
	"john":            21,
	"acts":            28,
	"romans":          16,
	"1-corinthians":   16,
	"2-corinthians":   13,
	"galatians":       6,
	"ephesians":       6,
	"philippians":     4,
	"colossians":      4,
	"1-thessalonians": 5,
	"2-thessalonians": 3,
	"1-timothy":       6,
	"2-timothy":       4,
	"titus":           3,
	"philemon":        1,
	"hebrews":         13,
	"james":           5,
	"1-peter":         5,
	"2-peter":         3,
	"1-john":          5,
	"2-john":          1,
	"3-john":          1,
	"jude":            1,
	"revelation":      22,
}

// ChapterCount returns the chapter count for a book.
// Unknown books report 1 so aggregate math never divides by zero.
func ChapterCount(bookID string) int {
	if n, ok := chapterCounts[bookID]; ok {
		return n
	}
	return 1
}

// IsKnownBook reports whether bookID is in the catalog.
func IsKnownBook(bookID string) bool {
	_, ok := chapterCounts[bookID]
	return ok
}

// availableChapters lists the books that have rendered audio in the bucket
// and how many chapters of each are up. Both voice presets share the same
// coverage.
var availableChapters = map[string]int{
	"genesis": 50,
	"jude":    1,
	"1-john":  5,
	"2-john":  1,
	"3-john":  1,
}

// IsAudioAvailable reports whether a chapter has rendered audio for any
// voice preset. Used to gate playback endpoints, not a general feature.
func IsAudioAvailable(bookID string, chapterID int) bool {
	max, ok := availableChapters[bookID]
	return ok && chapterID >= 1 && chapterID <= max
}

// BucketBookID converts a catalog book id to the folder name used in the
// audio bucket. Numbered books drop the hyphen: "2-john" -> "2john".
func BucketBookID(bookID string) string {
	return strings.Replace(bookID, "-", "", 1)
}
