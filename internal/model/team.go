package model

// TeamCapacity is the maximum number of members a team can hold.
const TeamCapacity = 4

type Team struct {
	Name         string   `json:"team_name"`
	Members      []string `json:"members"`
	Desc         string   `json:"desc"`
	WantedSkills []string `json:"wanted_skills"`
	Prizes       []string `json:"prizes"`
	Complete     bool     `json:"complete"`
	Interested   []string `json:"interested"`
	// Names holds directory display names aligned with Members.
	Names []string `json:"names,omitempty"`
}

type TeamPatch struct {
	Desc         *string  `json:"desc"`
	WantedSkills []string `json:"wanted_skills"`
	Prizes       []string `json:"prizes"`
}

type TeamDraft struct {
	Name         string   `json:"name" validate:"required"`
	Desc         string   `json:"desc" validate:"required"`
	WantedSkills []string `json:"skills" validate:"required,min=1,dive,required"`
	Prizes       []string `json:"prizes" validate:"omitempty,dive,required"`
}
