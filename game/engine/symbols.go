package engine

// DefaultSymbols is the standard deck alphabet of 32 distinct sports symbols.
var DefaultSymbols = []string{
	"⚽", "🏀", "🏈", "⚾", "🥎", "🏐", "🏉", "🎾", "🥏", "🎱", "🏓", "🏸",
	"🏒", "🏑", "🥍", "🏏", "⛳", "🥊", "🥋", "🎽", "⛸️", "🎿", "🛷", "🥌",
	"🏄", "🚣", "🏊", "🚴", "🧗", "🤺", "⛹️", "🤸",
}
