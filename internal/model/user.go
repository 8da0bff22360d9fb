package model

type User struct {
	Email        string   `json:"email"`
	Name         string   `json:"name,omitempty"`
	HasTeam      bool     `json:"hasateam"`
	Skills       []string `json:"skills"`
	Prizes       []string `json:"prizes"`
	Bio          string   `json:"bio"`
	Github       string   `json:"github"`
	PendingTeams []string `json:"potentialteams"`
}

type UserPatch struct {
	Skills []string `json:"skills"`
	Prizes []string `json:"prizes"`
	Bio    *string  `json:"bio"`
	Github *string  `json:"github"`
}

// UserFilter narrows profile listings; zero fields match everything.
type UserFilter struct {
	HasTeam *bool
	Skill   string
	Prize   string
}
