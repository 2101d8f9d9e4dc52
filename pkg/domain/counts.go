package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Speaker identifies one of the two accumulation buckets a transcript line is
// attributed to.
type Speaker string

const (
	SpeakerReporters Speaker = "reporters"
	SpeakerSecretary Speaker = "secretary"
)

// WordCounts maps a word to the number of times it was seen.
//
// It marshals as a JSON object whose keys appear in descending frequency,
// ties broken alphabetically.
type WordCounts map[string]int

// Sorted returns the words ordered by descending count, then ascending word.
func (w WordCounts) Sorted() []string {
	words := make([]string, 0, len(w))
	for word := range w {
		words = append(words, word)
	}
	sort.Slice(words, func(i, j int) bool {
		if w[words[i]] != w[words[j]] {
			return w[words[i]] > w[words[j]]
		}
		return words[i] < words[j]
	})
	return words
}

// MarshalJSON writes the counts ordered by frequency.
func (w WordCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, word := range w.Sorted() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(word)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal word %q: %w", word, err)
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", w[word])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// BucketCounts is the persisted form of one speaker bucket.
type BucketCounts struct {
	Words WordCounts `json:"words"`
	// Count is the number of distinct words in Words.
	Count int `json:"count"`
}

// SpeakerWordCounts holds the per-speaker word frequencies of one document.
type SpeakerWordCounts struct {
	Reporters BucketCounts `json:"reporters"`
	Secretary BucketCounts `json:"secretary"`
}

// NewSpeakerWordCounts returns empty, non-nil buckets.
func NewSpeakerWordCounts() *SpeakerWordCounts {
	return &SpeakerWordCounts{
		Reporters: BucketCounts{Words: WordCounts{}},
		Secretary: BucketCounts{Words: WordCounts{}},
	}
}

// Add increments word in the bucket for speaker and keeps Count in step.
func (c *SpeakerWordCounts) Add(speaker Speaker, word string) {
	bucket := c.Bucket(speaker)
	if bucket.Words == nil {
		bucket.Words = WordCounts{}
	}
	if _, seen := bucket.Words[word]; !seen {
		bucket.Count++
	}
	bucket.Words[word]++
}

// Bucket returns a pointer to the bucket for speaker. Anything that is not
// SpeakerReporters is the secretary.
func (c *SpeakerWordCounts) Bucket(speaker Speaker) *BucketCounts {
	if speaker == SpeakerReporters {
		return &c.Reporters
	}
	return &c.Secretary
}

// Merge adds every count of other into c.
func (c *SpeakerWordCounts) Merge(other *SpeakerWordCounts) {
	for _, speaker := range []Speaker{SpeakerReporters, SpeakerSecretary} {
		for word, n := range other.Bucket(speaker).Words {
			bucket := c.Bucket(speaker)
			if bucket.Words == nil {
				bucket.Words = WordCounts{}
			}
			if _, seen := bucket.Words[word]; !seen {
				bucket.Count++
			}
			bucket.Words[word] += n
		}
	}
}
