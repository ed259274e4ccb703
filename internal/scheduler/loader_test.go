package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBuildsIndexedDomain(t *testing.T) {
	in := departmentInput()
	in.Rooms[0], in.Rooms[2] = in.Rooms[2], in.Rooms[0]

	d, err := Load(in)
	require.NoError(t, err)

	ids := func(rooms []*RoomInfo) []string {
		out := make([]string, 0, len(rooms))
		for _, r := range rooms {
			out = append(out, r.ID)
		}
		return out
	}
	assert.Equal(t, []string{"lab1", "r101", "r102"}, ids(d.RoomsByID()))
	assert.Equal(t, "b1", d.Batches()[0].ID)
	assert.Equal(t, 2, d.Batches()[2].Position)

	f, ok := d.Faculty("f3")
	require.True(t, ok)
	assert.True(t, f.Teaches("l2"))
	assert.False(t, f.Teaches("s1"))

	s, ok := d.Subject("l1")
	require.True(t, ok)
	assert.Equal(t, Lab, s.Type)
}

func TestLoadAcceptsTypeCasing(t *testing.T) {
	in := singleSubjectInput(40)
	in.Subjects[0].Type = "theory"
	in.Rooms[0].Type = "THEORY"

	d, err := Load(in)
	require.NoError(t, err)
	r, _ := d.Room("r101")
	assert.Equal(t, Theory, r.Type)
}

func TestLoadReportsEveryProblem(t *testing.T) {
	in := singleSubjectInput(0)
	in.Subjects = append(in.Subjects,
		Subject{ID: "ds", DepartmentID: "cse", Name: "dup", Credits: 1, Type: "Theory"},
		Subject{ID: "x", DepartmentID: "cse", Name: "Bad", Credits: 0, Type: "Seminar"},
	)
	in.Faculty[0].Expertise = append(in.Faculty[0].Expertise, "ghost")
	in.Batches = append(in.Batches,
		Batch{ID: "b2", DepartmentID: "ece", Name: "ECE", Strength: -1, SubjectIDs: []string{"ds", "ds", "missing"}},
		Batch{ID: "", DepartmentID: "cse"},
	)

	_, err := Load(in)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	assert.ElementsMatch(t, []string{
		`subject "ds" is duplicated`,
		`subject "x" has non-positive credits 0`,
		`subject "x" has unknown type "Seminar"`,
		`faculty "f1" references unknown subject "ghost"`,
		`room "r101" has non-positive capacity 0`,
		`batch "b2" belongs to department "ece", expected "cse"`,
		`batch "b2" has non-positive strength -1`,
		`batch "b2" lists subject "ds" more than once`,
		`batch "b2" references unknown subject "missing"`,
		`batch #2 has an empty id`,
	}, verr.Problems)
	assert.Contains(t, err.Error(), "invalid scheduling input")
}

func TestLoadWithoutDepartmentSkipsScopeCheck(t *testing.T) {
	in := singleSubjectInput(40)
	in.DepartmentID = ""
	in.Rooms[0].DepartmentID = "shared"

	_, err := Load(in)
	assert.NoError(t, err)
}
