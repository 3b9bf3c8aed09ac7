package storage

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidJoinSpec — спецификация собрана с нарушением правил (см. Builder.Build).
var ErrInvalidJoinSpec = errors.New("invalid join spec")

// Collection — имя коллекции документного хранилища.
type Collection string

// Stage — шаг join-спецификации. Набор реализаций закрыт:
// MatchStage, LookupStage, TallyStage, CountStage, ContainsStage, FirstStage, ProjectStage.
type Stage interface {
	isStage()
}

// MatchOp — оператор сравнения в MatchStage.
type MatchOp int

const (
	OpEq MatchOp = iota
	OpIn
)

// MatchStage отбирает документы, у которых Field равно Value (OpEq)
// или входит в слайс Value (OpIn).
type MatchStage struct {
	Field string
	Op    MatchOp
	Value any
}

// LookupStage присоединяет документы From, у которых ForeignField == LocalField,
// в массив As. Pipeline применяется к присоединяемым документам.
type LookupStage struct {
	From         Collection
	LocalField   string
	ForeignField string
	As           string
	Pipeline     []Stage
}

// TallyField — поле, в которое TallyStage пишет число документов.
const TallyField = "n"

// TallyStage сворачивает присоединённые документы в один {n: <число>}.
// Допустим только во вложенном конвейере Lookup: присоединённый массив
// остаётся из одного элемента при любом числе документов.
type TallyStage struct{}

// CountStage записывает в As число из массива Field, свёрнутого TallyStage;
// пустой массив даёт 0.
type CountStage struct {
	Field string
	As    string
}

// ContainsStage записывает в As признак вхождения Value в массив по пути Field.
type ContainsStage struct {
	Field string
	Value any
	As    string
}

// FirstStage заменяет массив Field его первым элементом (или убирает поле, если массив пуст).
type FirstStage struct {
	Field string
}

// ProjectStage оставляет только перечисленные поля.
type ProjectStage struct {
	Fields []string
}

func (MatchStage) isStage()    {}
func (LookupStage) isStage()   {}
func (TallyStage) isStage()    {}
func (CountStage) isStage()    {}
func (ContainsStage) isStage() {}
func (FirstStage) isStage()    {}
func (ProjectStage) isStage()  {}

// JoinSpec — типизированное описание составного запроса, которое
// интерпретирует конкретное хранилище.
type JoinSpec struct {
	From   Collection
	Stages []Stage
}

// Builder собирает JoinSpec. Первая ошибка запоминается и возвращается из Build.
type Builder struct {
	spec JoinSpec
	err  error
}

// From начинает спецификацию над коллекцией c.
func From(c Collection) *Builder {
	return &Builder{spec: JoinSpec{From: c}}
}

// Nested начинает вложенный конвейер для Lookup.
func Nested() *Builder {
	return &Builder{}
}

func (b *Builder) add(s Stage) *Builder {
	if b.err == nil {
		b.spec.Stages = append(b.spec.Stages, s)
	}

	return b
}

func (b *Builder) fail(format string, args ...any) *Builder {
	if b.err == nil {
		b.err = fmt.Errorf("%w: %s", ErrInvalidJoinSpec, fmt.Sprintf(format, args...))
	}

	return b
}

// Match добавляет отбор по равенству.
func (b *Builder) Match(field string, value any) *Builder {
	if field == "" {
		return b.fail("match: empty field")
	}

	return b.add(MatchStage{Field: field, Op: OpEq, Value: value})
}

// MatchIn добавляет отбор по вхождению в список values.
func (b *Builder) MatchIn(field string, values any) *Builder {
	if field == "" {
		return b.fail("match in: empty field")
	}

	return b.add(MatchStage{Field: field, Op: OpIn, Value: values})
}

// Lookup присоединяет коллекцию from. nested может быть nil.
func (b *Builder) Lookup(from Collection, localField, foreignField, as string, nested *Builder) *Builder {
	if from == "" || localField == "" || foreignField == "" || as == "" {
		return b.fail("lookup: from, local, foreign and as are required")
	}

	var stages []Stage
	if nested != nil {
		if nested.err != nil {
			return b.fail("lookup %s: %v", from, nested.err)
		}

		stages = nested.spec.Stages
	}

	// Документы пользователей содержат секреты и присоединяются только через проекцию или счётчик.
	if from == CollUsers && !endsWithProject(stages) && !endsWithTally(stages) {
		return b.fail("lookup %s: nested pipeline must end with a projection or tally", from)
	}

	return b.add(LookupStage{
		From:         from,
		LocalField:   localField,
		ForeignField: foreignField,
		As:           as,
		Pipeline:     stages,
	})
}

// Tally сворачивает вложенный конвейер в число документов.
func (b *Builder) Tally() *Builder {
	if b.spec.From != "" {
		return b.fail("tally: only in nested pipeline")
	}

	return b.add(TallyStage{})
}

// Count переносит в as число документов, посчитанное Tally в lookup с As == field.
func (b *Builder) Count(field, as string) *Builder {
	if field == "" || as == "" {
		return b.fail("count: field and as are required")
	}

	if !b.hasTalliedLookup(field) {
		return b.fail("count %q: no preceding lookup ending with tally", field)
	}

	return b.add(CountStage{Field: field, As: as})
}

func (b *Builder) hasTalliedLookup(as string) bool {
	for _, st := range b.spec.Stages {
		if l, ok := st.(LookupStage); ok && l.As == as && endsWithTally(l.Pipeline) {
			return true
		}
	}

	return false
}

// Contains добавляет признак вхождения value в массив field.
func (b *Builder) Contains(field string, value any, as string) *Builder {
	if field == "" || as == "" {
		return b.fail("contains: field and as are required")
	}

	return b.add(ContainsStage{Field: field, Value: value, As: as})
}

// First заменяет массив field его первым элементом.
func (b *Builder) First(field string) *Builder {
	if field == "" {
		return b.fail("first: empty field")
	}

	return b.add(FirstStage{Field: field})
}

// Project оставляет только fields. Секретные поля запрещены.
func (b *Builder) Project(fields ...string) *Builder {
	if len(fields) == 0 {
		return b.fail("project: no fields")
	}

	for _, f := range fields {
		if isSensitive(f) {
			return b.fail("project: field %q is not allowed", f)
		}
	}

	return b.add(ProjectStage{Fields: append([]string(nil), fields...)})
}

// Build возвращает готовую спецификацию.
// Верхнеуровневый конвейер обязан заканчиваться проекцией.
func (b *Builder) Build() (JoinSpec, error) {
	if b.err != nil {
		return JoinSpec{}, b.err
	}

	if b.spec.From == "" {
		return JoinSpec{}, fmt.Errorf("%w: empty source collection", ErrInvalidJoinSpec)
	}

	if !endsWithProject(b.spec.Stages) {
		return JoinSpec{}, fmt.Errorf("%w: pipeline must end with a projection", ErrInvalidJoinSpec)
	}

	return b.spec, nil
}

func endsWithProject(stages []Stage) bool {
	if len(stages) == 0 {
		return false
	}

	_, ok := stages[len(stages)-1].(ProjectStage)
	return ok
}

func endsWithTally(stages []Stage) bool {
	if len(stages) == 0 {
		return false
	}

	_, ok := stages[len(stages)-1].(TallyStage)
	return ok
}

func isSensitive(field string) bool {
	last := field
	if i := strings.LastIndexByte(field, '.'); i >= 0 {
		last = field[i+1:]
	}

	_, ok := sensitiveFields[last]
	return ok
}
