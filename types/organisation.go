package types

// Organisation is a company or institution alumni belong to.
// Created implicitly the first time a user registers under its name.
type Organisation struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
