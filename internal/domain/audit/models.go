package audit

import "time"

const (
	ActionClaim    = "claim"
	ActionImport   = "import"
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionPassword = "password"
	ActionLogin    = "login"
	ActionLogout   = "logout"

	EntityMaterial = "material"
	EntityUser     = "user"
	EntitySession  = "session"
)

type Entry struct {
	ID        int64
	UserID    int64
	UserName  string
	Action    string
	Entity    string
	EntityID  string
	Details   string
	IPAddress string
	CreatedAt time.Time
}

type Filters struct {
	UserName string
	Action   string
	Entity   string
	From     time.Time
	To       time.Time
}

type Page struct {
	Items []Entry
	Total int64
	Page  int
	Limit int
}

type FilterOptions struct {
	Actions  []string
	Entities []string
}
