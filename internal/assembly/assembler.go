package assembly

import (
	"fmt"
	"strings"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/generation"
	"github.com/google/uuid"
)

// ValidDraft is a draft that passed validation. It can only be obtained from
// Validate, so Build never sees unchecked input.
type ValidDraft struct {
	languages []string
	modules   []validModule
}

type validModule struct {
	title       string
	description string
	lessons     []validLesson
}

type validLesson struct {
	contents []domain.LessonContent
	quiz     *validQuiz
}

type validQuiz struct {
	quizType  domain.QuizType
	questions []domain.Question
}

// Validate checks every element of draft against the requested languages and
// returns the first violation as an *AssemblyError. Content in languages that
// were not requested is dropped.
func Validate(draft *generation.Draft, languages []string) (*ValidDraft, error) {
	if draft == nil || len(draft.Modules) == 0 {
		return nil, newError(ErrEmptyDraft, -1, -1, -1, "no modules")
	}

	langs := normalizeLanguages(languages)
	if len(langs) == 0 {
		return nil, newError(ErrIncompleteContent, -1, -1, -1, "no target language requested")
	}

	valid := &ValidDraft{languages: langs, modules: make([]validModule, 0, len(draft.Modules))}
	for mi, m := range draft.Modules {
		title := strings.TrimSpace(m.Title)
		if title == "" {
			return nil, newError(ErrIncompleteContent, mi, -1, -1, "module title is empty")
		}
		if len(m.Lessons) == 0 {
			return nil, newError(ErrEmptyDraft, mi, -1, -1, "module has no lessons")
		}

		vm := validModule{
			title:       title,
			description: strings.TrimSpace(m.Description),
			lessons:     make([]validLesson, 0, len(m.Lessons)),
		}
		for li, l := range m.Lessons {
			vl, err := validateLesson(l, langs, mi, li)
			if err != nil {
				return nil, err
			}
			vm.lessons = append(vm.lessons, vl)
		}
		valid.modules = append(valid.modules, vm)
	}

	return valid, nil
}

func validateLesson(l generation.LessonDraft, langs []string, mi, li int) (validLesson, error) {
	byLang := make(map[string]generation.ContentDraft, len(l.Contents))
	for _, c := range l.Contents {
		lang := domain.NormalizeLanguage(c.Language)
		if _, seen := byLang[lang]; !seen {
			byLang[lang] = c
		}
	}

	vl := validLesson{contents: make([]domain.LessonContent, 0, len(langs))}
	for _, lang := range langs {
		c, ok := byLang[lang]
		if !ok {
			err := newError(ErrIncompleteContent, mi, li, -1, "missing requested language")
			err.Language = lang
			return validLesson{}, err
		}
		title, body := strings.TrimSpace(c.Title), strings.TrimSpace(c.Body)
		if title == "" || body == "" {
			err := newError(ErrIncompleteContent, mi, li, -1, "title and body are required")
			err.Language = lang
			return validLesson{}, err
		}
		vl.contents = append(vl.contents, domain.LessonContent{Language: lang, Title: title, Body: body})
	}

	if l.Quiz != nil {
		q, err := validateQuiz(l.Quiz, mi, li)
		if err != nil {
			return validLesson{}, err
		}
		vl.quiz = q
	}

	return vl, nil
}

func validateQuiz(q *generation.QuizDraft, mi, li int) (*validQuiz, error) {
	quizType := domain.QuizType(strings.ToUpper(strings.TrimSpace(q.Type)))
	if quizType == "" {
		quizType = domain.QuizTypeMCQ
	}
	if !quizType.IsValid() {
		return nil, newError(ErrInvalidQuiz, mi, li, -1, fmt.Sprintf("unknown quiz type %q", q.Type))
	}
	if len(q.Questions) == 0 {
		return nil, newError(ErrInvalidQuiz, mi, li, -1, "quiz has no questions")
	}

	vq := &validQuiz{quizType: quizType, questions: make([]domain.Question, 0, len(q.Questions))}
	for qi, question := range q.Questions {
		prompt := strings.TrimSpace(question.Prompt)
		if prompt == "" {
			return nil, newError(ErrInvalidQuestion, mi, li, qi, "prompt is empty")
		}
		if len(question.Options) == 0 {
			return nil, newError(ErrInvalidQuestion, mi, li, qi, "options are empty")
		}

		options := make([]string, 0, len(question.Options))
		seen := make(map[string]struct{}, len(question.Options))
		for _, opt := range question.Options {
			opt = strings.TrimSpace(opt)
			if opt == "" {
				return nil, newError(ErrInvalidQuestion, mi, li, qi, "option is blank")
			}
			if _, dup := seen[opt]; dup {
				return nil, newError(ErrInvalidQuestion, mi, li, qi, fmt.Sprintf("duplicate option %q", opt))
			}
			seen[opt] = struct{}{}
			options = append(options, opt)
		}
		if quizType == domain.QuizTypeTrueFalse && len(options) != 2 {
			return nil, newError(ErrInvalidQuestion, mi, li, qi, "true/false questions need exactly two options")
		}

		answer := strings.TrimSpace(question.Answer)
		if _, ok := seen[answer]; !ok {
			return nil, newError(ErrInvalidQuestion, mi, li, qi, "answer is not one of the options")
		}

		vq.questions = append(vq.questions, domain.Question{Prompt: prompt, Options: options, Answer: answer})
	}

	return vq, nil
}

func normalizeLanguages(languages []string) []string {
	out := make([]string, 0, len(languages))
	seen := make(map[string]struct{}, len(languages))
	for _, l := range languages {
		l = domain.NormalizeLanguage(l)
		if l == "" {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// Build materializes a validated draft into the subtree of course with fresh
// IDs. Modules, lessons and questions are numbered 0..n-1 in list order.
func Build(courseID uuid.UUID, draft *ValidDraft, now time.Time) []*domain.Module {
	now = now.UTC()
	modules := make([]*domain.Module, 0, len(draft.modules))
	for mi, vm := range draft.modules {
		module := &domain.Module{
			ID:          uuid.New(),
			CourseID:    courseID,
			Title:       vm.title,
			Description: vm.description,
			Order:       mi,
			CreatedAt:   now,
			Lessons:     make([]*domain.Lesson, 0, len(vm.lessons)),
		}

		for li, vl := range vm.lessons {
			lesson := &domain.Lesson{
				ID:        uuid.New(),
				ModuleID:  module.ID,
				Order:     li,
				CreatedAt: now,
				Contents:  make([]*domain.LessonContent, 0, len(vl.contents)),
			}
			for _, c := range vl.contents {
				content := c
				content.ID = uuid.New()
				content.LessonID = lesson.ID
				lesson.Contents = append(lesson.Contents, &content)
			}

			if vl.quiz != nil {
				quiz := &domain.Quiz{
					ID:        uuid.New(),
					LessonID:  lesson.ID,
					Type:      vl.quiz.quizType,
					Questions: make([]*domain.Question, 0, len(vl.quiz.questions)),
				}
				for qi, q := range vl.quiz.questions {
					question := q
					question.ID = uuid.New()
					question.QuizID = quiz.ID
					question.Order = qi
					question.Options = append([]string(nil), q.Options...)
					quiz.Questions = append(quiz.Questions, &question)
				}
				lesson.Quiz = quiz
			}

			module.Lessons = append(module.Lessons, lesson)
		}

		modules = append(modules, module)
	}
	return modules
}

// Assembler validates and builds drafts for the orchestrator.
type Assembler struct {
	now func() time.Time
}

// NewAssembler creates an Assembler using the wall clock.
func NewAssembler() *Assembler {
	return &Assembler{now: time.Now}
}

// Assemble validates draft for the course's requested languages and returns a
// copy of course with Modules populated. The input course is not modified.
func (a *Assembler) Assemble(
	course *domain.Course,
	draft *generation.Draft,
	languages []string,
) (*domain.Course, error) {
	valid, err := Validate(draft, languages)
	if err != nil {
		return nil, err
	}

	assembled := *course
	assembled.Modules = Build(course.ID, valid, a.now())
	return &assembled, nil
}
