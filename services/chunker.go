package services

// Chunk is a window of a document's text. Start and End are character
// offsets, End exclusive.
type Chunk struct {
	Index int
	Start int
	End   int
	Text  string
}

// ChunkText splits text into windows of at most size characters where
// consecutive windows share exactly overlap characters. Windows never cut
// through a multi-byte character.
func ChunkText(text string, size, overlap int) ([]Chunk, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, ErrInvalidChunkConfig
	}

	runes := []rune(text)
	chunks := make([]Chunk, 0, len(runes)/(size-overlap)+1)
	if len(runes) == 0 {
		return chunks, nil
	}

	step := size - overlap
	for start := 0; ; start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Start: start,
			End:   end,
			Text:  string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}
