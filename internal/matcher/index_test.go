package matcher

import (
	"testing"

	"github.com/ssematimba/gate-check/internal/attendance"
)

func TestIndex_EmptyIndex(t *testing.T) {
	ix := NewIndex(attendance.PopulationStudent)

	result := ix.Match(descriptor(0), DefaultOptions())

	if result.Matched {
		t.Error("expected no match from empty index")
	}
	if ix.Count() != 0 {
		t.Errorf("expected count 0, got %d", ix.Count())
	}
}

func TestIndex_BuildAndMatch(t *testing.T) {
	ix := NewIndex(attendance.PopulationStudent)
	ix.Build([]attendance.Template{
		studentTemplate(1, 10, 0.5),
		studentTemplate(2, 20, 0.1),
		studentTemplate(3, 30, 0.4),
	})

	if ix.Count() != 3 {
		t.Fatalf("expected 3 indexed templates, got %d", ix.Count())
	}

	result := ix.Match(descriptor(0), DefaultOptions())

	if !result.Matched {
		t.Fatal("expected a match")
	}
	if result.PersonID != 20 {
		t.Errorf("expected closest person 20, got %d", result.PersonID)
	}
}

func TestIndex_AgreesWithLinearMatch(t *testing.T) {
	templates := []attendance.Template{
		studentTemplate(1, 30, 0.2),
		studentTemplate(2, 10, 0.2),
		studentTemplate(3, 20, 0.45),
		studentTemplate(4, 40, 1.2),
	}

	ix := NewIndex(attendance.PopulationStudent)
	ix.Build(templates)

	linear := Match(descriptor(0), templates, DefaultOptions())
	indexed := ix.Match(descriptor(0), DefaultOptions())

	if indexed.Matched != linear.Matched || indexed.PersonID != linear.PersonID {
		t.Errorf("index result %+v disagrees with linear result %+v", indexed, linear)
	}
}

func TestIndex_IgnoresForeignPopulation(t *testing.T) {
	ix := NewIndex(attendance.PopulationStudent)
	ix.Build([]attendance.Template{
		{ID: 1, PersonID: 10, Population: attendance.PopulationTeacher, Descriptor: descriptor(0.1)},
	})

	if ix.Count() != 0 {
		t.Errorf("expected teacher template to be excluded from student index, got count %d", ix.Count())
	}
}

func TestIndex_AddIncremental(t *testing.T) {
	ix := NewIndex(attendance.PopulationStudent)
	ix.Add(studentTemplate(1, 10, 0.2))
	ix.Add(studentTemplate(2, 20, 0.8))

	if ix.Count() != 2 {
		t.Fatalf("expected 2 indexed templates, got %d", ix.Count())
	}

	result := ix.Match(descriptor(0), DefaultOptions())
	if !result.Matched || result.PersonID != 10 {
		t.Errorf("expected person 10, got %+v", result)
	}
}

func TestIndex_MismatchedProbeDimension(t *testing.T) {
	ix := NewIndex(attendance.PopulationStudent)
	ix.Build([]attendance.Template{studentTemplate(1, 10, 0.2)})

	result := ix.Match([]float32{0, 0}, DefaultOptions())

	if result.Matched {
		t.Error("expected no match for mismatched probe dimension")
	}
}
