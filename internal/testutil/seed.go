package testutil

import "tasker/internal/service"

// SeedStatuses returns the statuses every fake starts with. ClosedStatusID
// is "Closed".
func SeedStatuses() []service.Status {
	return []service.Status{
		{ID: 1, Name: "Open"}, {ID: 2, Name: "In progress"},
		{ID: 3, Name: "Review"}, {ID: ClosedStatusID, Name: "Closed"},
	}
}

// SeedPriorities returns the priorities every fake starts with.
func SeedPriorities() []service.Priority {
	return []service.Priority{
		{ID: 1, Level: "Low"}, {ID: 2, Level: "Medium"}, {ID: 3, Level: "High"},
	}
}

// SeedUser returns the account behind FakeEmail.
func SeedUser() service.User {
	return service.User{
		ID: 1, Username: "ada", Email: FakeEmail,
		FirstName: "Ada", LastName: "Lovelace",
		Position: &service.Position{ID: 1, Name: "Engineer"},
	}
}
