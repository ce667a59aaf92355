package types

// CVData is the structured form of a parsed CV. It is produced once by the
// extraction prompt at upload time and stored as JSONB on MasterProfile.
type CVData struct {
	PersonalInfo PersonalInfo  `json:"personalInfo"`
	Experiences  []Experience  `json:"experiences"`
	Education    []Education   `json:"education"`
	Projects     []Project     `json:"projects"`
	Skills       Skills        `json:"skills"`
	Languages    []SpokenLang  `json:"languages"`
}

type PersonalInfo struct {
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Location     string `json:"location"`
	LinkedinURL  string `json:"linkedinUrl,omitempty"`
	GithubURL    string `json:"githubUrl,omitempty"`
	PortfolioURL string `json:"portfolioUrl,omitempty"`
}

type Experience struct {
	Title     string   `json:"title"`
	Company   string   `json:"company"`
	Location  string   `json:"location"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
	Bullets   []string `json:"bullets"`
}

type Education struct {
	Degree    string `json:"degree"`
	School    string `json:"school"`
	Location  string `json:"location"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type Project struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	TechStack   []string `json:"techStack"`
	Year        string   `json:"year"`
}

type Skills struct {
	Languages     []string `json:"languages"`
	Frameworks    []string `json:"frameworks"`
	AIAndData     []string `json:"aiAndData"`
	ToolsAndCloud []string `json:"toolsAndCloud"`
	SoftSkills    []string `json:"softSkills"`
}

type SpokenLang struct {
	Language string `json:"language"`
	Level    string `json:"level"`
}
