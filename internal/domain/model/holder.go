package model

// Holder is a current member of the VIP role as reported by the role
// membership source. DisplayName is used for roster ordering only.
type Holder struct {
	ID          string
	DisplayName string
}
