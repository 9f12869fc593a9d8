package models

// AskRequest is the body of POST /ask_question. A missing or zero
// document_id falls back to the last uploaded document.
type AskRequest struct {
	DocumentID *int64 `json:"document_id"`
	Question   string `json:"question" binding:"required,max=2000"`
}

type AskResponse struct {
	Answer string `json:"answer"`
}

type UploadResponse struct {
	DocumentID int64 `json:"document_id"`
}

// QAPair is the wire form of a recorded question and its answer.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// DocumentSummary is one entry of GET /documents.
type DocumentSummary struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Text      string   `json:"text"`
	Questions []QAPair `json:"questions"`
}

// ToPairs converts stored records to their wire form, keeping order.
func ToPairs(history []QuestionAnswer) []QAPair {
	pairs := make([]QAPair, 0, len(history))
	for _, qa := range history {
		pairs = append(pairs, QAPair{Question: qa.Question, Answer: qa.Answer})
	}
	return pairs
}
