package generation

// Draft is the raw structured output of a Capability. Nothing in it is
// trusted: languages may be absent and quiz answers may not match their
// options. Modules and lessons are taken in list order.
type Draft struct {
	Modules []ModuleDraft `json:"modules"`
}

// ModuleDraft is one module as proposed by the model.
type ModuleDraft struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	// Order is a position hint some models add on their own. Assembly
	// ignores it.
	Order       *int          `json:"order,omitempty"`
	Lessons     []LessonDraft `json:"lessons"`
}

// LessonDraft is one lesson with per-language content and an optional quiz.
type LessonDraft struct {
	// Order is ignored like ModuleDraft.Order.
	Order    *int           `json:"order,omitempty"`
	Contents []ContentDraft `json:"contents"`
	Quiz     *QuizDraft     `json:"quiz,omitempty"`
}

// ContentDraft is a lesson's text in one language.
type ContentDraft struct {
	Language string `json:"language"`
	Title    string `json:"title"`
	Body     string `json:"body"`
}

// QuizDraft is a proposed quiz. An empty Type means MCQ.
type QuizDraft struct {
	Type      string          `json:"type,omitempty"`
	Questions []QuestionDraft `json:"questions"`
}

// QuestionDraft is a proposed question.
type QuestionDraft struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"`
}
