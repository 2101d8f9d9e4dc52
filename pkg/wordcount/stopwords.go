package wordcount

// englishStopwords is the NLTK English stopword corpus as shipped in 2014.
var englishStopwords = []string{
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "your",
	"yours", "yourself", "yourselves", "he", "him", "his", "himself", "she", "her",
	"hers", "herself", "it", "its", "itself", "they", "them", "their", "theirs",
	"themselves", "what", "which", "who", "whom", "this", "that", "these", "those",
	"am", "is", "are", "was", "were", "be", "been", "being", "have", "has", "had",
	"having", "do", "does", "did", "doing", "a", "an", "the", "and", "but", "if",
	"or", "because", "as", "until", "while", "of", "at", "by", "for", "with",
	"about", "against", "between", "into", "through", "during", "before", "after",
	"above", "below", "to", "from", "up", "down", "in", "out", "on", "off", "over",
	"under", "again", "further", "then", "once", "here", "there", "when", "where",
	"why", "how", "all", "any", "both", "each", "few", "more", "most", "other",
	"some", "such", "no", "nor", "not", "only", "own", "same", "so", "than", "too",
	"very", "s", "t", "can", "will", "just", "don", "should", "now",
}

// DefaultExtraStopwords are names, titles and filler that dominate briefing
// transcripts without saying anything about the topics discussed.
var DefaultExtraStopwords = []string{
	"q", "carney", "earnest", "president", "mr", "--", "would", "said", "american",
	"united", "states", "think", "well", "im", "people", "josh", "earnestwell",
	"presidents", "country", "also", "thats", "one", "going", "made", "still",
	"saying", "really", "white", "jay",
}
