package model

// BlockType represents the kind of a content block
type BlockType string

const (
	BlockParagraph         BlockType = "paragraph"
	BlockHeading           BlockType = "heading"
	BlockList              BlockType = "list"
	BlockSummaryCard       BlockType = "summary_card"
	BlockQuestionCard      BlockType = "question_card"
	BlockHighlight         BlockType = "highlight"
	BlockBudgetSummary     BlockType = "budget_summary"
	BlockItineraryOverview BlockType = "itinerary_overview"
)

// ContentBlock is one ordered unit of a structured assistant answer.
// Insertion order is meaningful and preserved through rendering.
type ContentBlock struct {
	ID            string
	Type          BlockType
	Text          string     // paragraph, heading, highlight body
	Level         int        // heading level (1-3)
	Items         []string   // list entries
	Title         string     // card title
	Fields        []CardField // summary/budget/itinerary key-value rows
	HighlightType string     // "info", "warning", "success"
	QuestionID    string     // question_card reference
}

// CardField is one labeled value on a card block
type CardField struct {
	Label string
	Value string
}

// Paragraph is a convenience constructor for plain text blocks.
func Paragraph(id, text string) ContentBlock {
	return ContentBlock{ID: id, Type: BlockParagraph, Text: text}
}
