package embedding

import (
	"fmt"
	"strings"
)

// Default chunking parameters. 512 tokens matches the input budget of the
// small sentence-embedding models this system targets; 50 tokens of overlap
// keeps sentences that straddle a window boundary represented in both
// windows.
const (
	DefaultMaxChunkTokens = 512
	DefaultChunkOverlap   = 50
)

// Chunk splits text into windows of at most maxTokens whitespace-delimited
// tokens, each window advancing by maxTokens-overlap tokens. The final
// window may be shorter than maxTokens; together the windows cover every
// token of the input. Empty or all-whitespace input yields nil.
//
// Chunk is a pure function. overlap must be smaller than maxTokens and
// both must be positive; violating that is a programming error and panics.
func Chunk(text string, maxTokens, overlap int) []string {
	if maxTokens <= 0 || overlap < 0 || overlap >= maxTokens {
		panic(fmt.Sprintf("embedding: invalid chunk window maxTokens=%d overlap=%d", maxTokens, overlap))
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := maxTokens - overlap
	chunks := make([]string, 0, (len(words)+step-1)/step)
	for pos := 0; pos < len(words); pos += step {
		end := pos + maxTokens
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[pos:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
