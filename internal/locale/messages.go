// Package locale holds the user-facing status messages in every supported
// language and the calendar conventions (first day of week) per region.
package locale

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys. The English text doubles as the key.
const (
	MsgReady          = "Tap record to identify a song"
	MsgListening      = "Listening..."
	MsgSearching      = "Searching for the song..."
	MsgFound          = "Found: %s by %s"
	MsgAccessDenied   = "Could not access the microphone"
	MsgNoMatch        = "Could not identify the song"
	MsgNoMatchHint    = "Sorry, we could not find any information about your audio."
	MsgTransportError = "Something went wrong while identifying the song. Please try again."
	MsgTryAgain       = "Try again"
	MsgHistoryEmpty   = "No songs in history yet"
	MsgHistoryCleared = "History cleared"
	MsgConfirmClear   = "Clear the entire history? [y/N] "
	MsgToday          = "Today"
	MsgYesterday      = "Yesterday"
	MsgShareText      = "%s by %s"
	MsgCopied         = "Copied to clipboard: %s"
	MsgSearchOnYT     = "Search on YouTube"
	MsgShared         = "Shared"
	MsgShareManual    = "Nothing to share with, copy this: %s"
)

// Bengali is the language the original client shipped with.
var Bengali = language.Bengali

var supported = []language.Tag{language.English, Bengali}

var matcher = language.NewMatcher(supported)

func init() {
	for _, key := range []string{
		MsgReady, MsgListening, MsgSearching, MsgFound, MsgAccessDenied, MsgNoMatch,
		MsgNoMatchHint, MsgTransportError, MsgTryAgain, MsgHistoryEmpty, MsgHistoryCleared,
		MsgConfirmClear, MsgToday, MsgYesterday, MsgShareText, MsgCopied, MsgSearchOnYT,
		MsgShared, MsgShareManual,
	} {
		message.SetString(language.English, key, key)
	}

	bn := map[string]string{
		MsgReady:          "গান চিনতে রেকর্ড বোতাম চাপুন",
		MsgListening:      "শুনছি...",
		MsgSearching:      "গান খোঁজা হচ্ছে...",
		MsgFound:          "পাওয়া গেছে: %s - %s",
		MsgAccessDenied:   "মাইক্রোফোন অ্যাক্সেস করতে সমস্যা হচ্ছে",
		MsgNoMatch:        "গান শনাক্ত করা যায়নি",
		MsgNoMatchHint:    "দুঃখিত, আমরা আপনার অডিও সম্পর্কে কোন তথ্য খুঁজে পাইনি।",
		MsgTransportError: "দুঃখিত, গান চেনার সময় একটি ত্রুটি দেখা দিয়েছে। আবার চেষ্টা করুন।",
		MsgTryAgain:       "আবার চেষ্টা করুন",
		MsgHistoryEmpty:   "ইতিহাসে এখনো কোন গান নেই",
		MsgHistoryCleared: "ইতিহাস মুছে ফেলা হয়েছে",
		MsgConfirmClear:   "সম্পূর্ণ ইতিহাস মুছে ফেলবেন? [y/N] ",
		MsgToday:          "আজ",
		MsgYesterday:      "গতকাল",
		MsgShareText:      "%s - %s",
		MsgCopied:         "ক্লিপবোর্ডে কপি করা হয়েছে: %s",
		MsgSearchOnYT:     "YouTube দিয়ে খুঁজুন",
		MsgShared:         "শেয়ার করা হয়েছে",
		MsgShareManual:    "শেয়ার করার কোন উপায় নেই, এটি কপি করুন: %s",
	}
	for key, text := range bn {
		message.SetString(Bengali, key, text)
	}
}

// Parse resolves a locale string such as "en-US" or "bn-BD". Unknown or
// empty input falls back to American English.
func Parse(s string) language.Tag {
	if s == "" {
		return language.AmericanEnglish
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.AmericanEnglish
	}
	return tag
}

// Printer returns a printer for the best supported match of tag.
func Printer(tag language.Tag) *message.Printer {
	_, idx, _ := matcher.Match(tag)
	return message.NewPrinter(supported[idx])
}

// sundayRegions start the week on Sunday.
var sundayRegions = map[string]bool{
	"US": true, "CA": true, "MX": true, "BR": true, "JP": true, "KR": true, "TW": true,
	"HK": true, "IL": true, "IN": true, "PH": true, "ZA": true, "PE": true, "CO": true,
	"VE": true, "GT": true, "HN": true, "NI": true, "PA": true, "SV": true, "DO": true,
	"PR": true, "SA": true, "TH": true, "ID": true, "PK": true,
}

// saturdayRegions start the week on Saturday.
var saturdayRegions = map[string]bool{
	"AE": true, "AF": true, "BH": true, "DJ": true, "DZ": true, "EG": true, "IQ": true,
	"IR": true, "JO": true, "KW": true, "LY": true, "OM": true, "QA": true, "SD": true, "SY": true,
}

// WeekStart returns the first day of the week for the region of tag.
// Regions not known to start on Sunday or Saturday start on Monday.
func WeekStart(tag language.Tag) time.Weekday {
	region, _ := tag.Region()
	code := region.String()
	switch {
	case sundayRegions[code]:
		return time.Sunday
	case saturdayRegions[code]:
		return time.Saturday
	default:
		return time.Monday
	}
}
