package scheduler

import "testing"

func singleSubjectInput(roomCapacity int) Input {
	return Input{
		DepartmentID: "cse",
		Subjects:     []Subject{{ID: "ds", DepartmentID: "cse", Name: "Data Structures", Credits: 3, Type: "Theory"}},
		Faculty:      []Faculty{{ID: "f1", DepartmentID: "cse", Name: "Dr. Rao", Expertise: []string{"ds"}}},
		Rooms:        []Room{{ID: "r101", DepartmentID: "cse", Name: "R101", Capacity: roomCapacity, Type: "Theory"}},
		Batches:      []Batch{{ID: "b1", DepartmentID: "cse", Name: "CSE-A", Strength: 30, SubjectIDs: []string{"ds"}}},
	}
}

func departmentInput() Input {
	return Input{
		DepartmentID: "cse",
		Subjects: []Subject{
			{ID: "s1", DepartmentID: "cse", Name: "Data Structures", Credits: 3, Type: "Theory"},
			{ID: "s2", DepartmentID: "cse", Name: "Algorithms", Credits: 3, Type: "Theory"},
			{ID: "s3", DepartmentID: "cse", Name: "DBMS", Credits: 3, Type: "Theory"},
			{ID: "s4", DepartmentID: "cse", Name: "Operating Systems", Credits: 2, Type: "Theory"},
			{ID: "l1", DepartmentID: "cse", Name: "DS Lab", Credits: 2, Type: "Lab"},
			{ID: "l2", DepartmentID: "cse", Name: "Networks Lab", Credits: 2, Type: "Lab"},
		},
		Faculty: []Faculty{
			{ID: "f1", DepartmentID: "cse", Name: "Dr. Rao", Expertise: []string{"s1", "l1"}},
			{ID: "f2", DepartmentID: "cse", Name: "Dr. Iyer", Expertise: []string{"s2", "s3"}},
			{ID: "f3", DepartmentID: "cse", Name: "Dr. Sen", Expertise: []string{"s3", "s4", "l2"}},
			{ID: "f4", DepartmentID: "cse", Name: "Dr. Das", Expertise: []string{"s1", "s2", "s4"}},
		},
		Rooms: []Room{
			{ID: "r101", DepartmentID: "cse", Name: "R101", Capacity: 60, Type: "Theory"},
			{ID: "r102", DepartmentID: "cse", Name: "R102", Capacity: 40, Type: "Theory"},
			{ID: "lab1", DepartmentID: "cse", Name: "Lab 1", Capacity: 40, Type: "Lab"},
		},
		Batches: []Batch{
			{ID: "b1", DepartmentID: "cse", Name: "CSE-A", Strength: 38, SubjectIDs: []string{"s1", "s2", "s3", "l1"}},
			{ID: "b2", DepartmentID: "cse", Name: "CSE-B", Strength: 55, SubjectIDs: []string{"s1", "s4", "s3"}},
			{ID: "b3", DepartmentID: "cse", Name: "CSE-C", Strength: 35, SubjectIDs: []string{"s2", "s4", "l1", "l2"}},
		},
	}
}

func mustLoad(t *testing.T, in Input) *Domain {
	t.Helper()
	d, err := Load(in)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return d
}
