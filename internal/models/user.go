package models

// User is a seeded account. Password holds either a plain value or a bcrypt
// hash. Users are compared by all three fields.
type User struct {
	ID       int64  `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	Password string `db:"password" json:"-"`
}
