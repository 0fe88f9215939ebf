package models

// User is the persisted user record. ID is assigned by the store on insert
// and never changes afterwards.
type User struct {
	ID      string `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	Age     int    `json:"age" db:"age"`
	Email   string `json:"email" db:"email"`
	Address string `json:"address,omitempty" db:"address"`
}

// UserPatch carries the fields supplied by a create or update request.
// A nil field was not supplied.
type UserPatch struct {
	Name    *string
	Age     *int
	Email   *string
	Address *string
}

// IsEmpty reports whether no field was supplied.
func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Age == nil && p.Email == nil && p.Address == nil
}

// Apply copies the supplied fields onto u.
func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Age != nil {
		u.Age = *p.Age
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
}

// UserPage is one page of a filtered user listing.
type UserPage struct {
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	Total      int64  `json:"total"`
	TotalPages int64  `json:"totalPages"`
	Data       []User `json:"data"`
}
