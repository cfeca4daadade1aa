package dispatch

import (
	"context"
	"testing"

	models "github.com/campuslink/notification-server/models/userdata"
)

type fakeDirectory struct {
	classes map[string][]int64
	chairs  map[string][]int64
	admins  []int64
}

func (d *fakeDirectory) ClassMembers(_ context.Context, code string) ([]int64, error) {
	return d.classes[code], nil
}

func (d *fakeDirectory) ProgramChairs(_ context.Context, program string) ([]int64, error) {
	return d.chairs[program], nil
}

func (d *fakeDirectory) MainAdministrators(_ context.Context) ([]int64, error) {
	return d.admins, nil
}

func testDirectory() *fakeDirectory {
	return &fakeDirectory{
		classes: map[string][]int64{
			"9C4K8N": {3, 4, 5},
		},
		chairs: map[string][]int64{
			"CS": {2},
			"EE": {6},
		},
		admins: []int64{1},
	}
}

func equalIds(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestResolveExplicitTargetsUsedAsIs(t *testing.T) {
	r := NewResolver(testDirectory())

	event := Event{Category: models.CategoryGrade, Targets: []int64{4, 4, 9}}
	got, err := r.Resolve(context.Background(), event, Actor{Id: 3, Role: models.RoleInstructor})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if !equalIds(got, []int64{4, 9}) {
		t.Fatalf("got %v, want [4 9]", got)
	}
}

func TestResolveExplicitTargetsWinOverClassCode(t *testing.T) {
	r := NewResolver(testDirectory())

	event := Event{Category: models.CategoryTask, ClassCode: "9C4K8N", Targets: []int64{4}}
	got, err := r.Resolve(context.Background(), event, Actor{Id: 3})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if !equalIds(got, []int64{4}) {
		t.Fatalf("explicit targets must short-circuit class expansion, got %v", got)
	}
}

func TestResolveClassScopedExcludesActor(t *testing.T) {
	r := NewResolver(testDirectory())

	event := Event{Category: models.CategoryTask, ClassCode: "9C4K8N"}
	got, err := r.Resolve(context.Background(), event, Actor{Id: 3, Role: models.RoleInstructor})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if !equalIds(got, []int64{4, 5}) {
		t.Fatalf("got %v, want [4 5]", got)
	}
}

func TestResolveClassScopedWithoutCodeIsEmpty(t *testing.T) {
	r := NewResolver(testDirectory())

	got, err := r.Resolve(context.Background(), Event{Category: models.CategoryAnnouncement}, Actor{Id: 3})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v, want empty set", got)
	}
}

func TestResolveAdministrativeScope(t *testing.T) {
	r := NewResolver(testDirectory())

	event := Event{Category: models.CategoryExcuse}
	got, err := r.Resolve(context.Background(), event, Actor{Id: 4, Role: models.RoleStudent, Program: "CS"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// CS chairperson plus the main administrator tier
	if !equalIds(got, []int64{2, 1}) {
		t.Fatalf("got %v, want [2 1]", got)
	}
}

func TestResolveAdministrativeScopeWithoutProgram(t *testing.T) {
	r := NewResolver(testDirectory())

	got, err := r.Resolve(context.Background(), Event{Category: models.CategorySystem}, Actor{Id: 9, Role: models.RoleAdministrator})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if !equalIds(got, []int64{1}) {
		t.Fatalf("got %v, want only the main tier", got)
	}
}

func TestResolveAdministrativeScopeExcludesActor(t *testing.T) {
	r := NewResolver(testDirectory())

	got, err := r.Resolve(context.Background(), Event{Category: models.CategoryEnrollment}, Actor{Id: 2, Role: models.RoleChairperson, Program: "CS"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if !equalIds(got, []int64{1}) {
		t.Fatalf("chairperson acting on own program must not notify themselves, got %v", got)
	}
}

func TestResolveIndividualCategoriesNeedExplicitTargets(t *testing.T) {
	r := NewResolver(testDirectory())

	for _, category := range []string{models.CategorySubmission, models.CategoryGrade, models.CategoryTest} {
		got, err := r.Resolve(context.Background(), Event{Category: category}, Actor{Id: 4})
		if err != nil {
			t.Fatalf("resolve %s: %v", category, err)
		}
		if len(got) != 0 {
			t.Fatalf("category %s without targets resolved to %v", category, got)
		}
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	r := NewResolver(testDirectory())
	event := Event{Category: models.CategoryTask, ClassCode: "9C4K8N"}
	actor := Actor{Id: 3}

	first, err := r.Resolve(context.Background(), event, actor)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	second, err := r.Resolve(context.Background(), event, actor)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if !equalIds(first, second) {
		t.Fatalf("same event resolved differently: %v vs %v", first, second)
	}
}
