package db

const (
	ConstLayoutDateTime = `2006-01-02 15:04`
	ConstLayoutDate     = `2006-01-02`
	ConstLayoutTime     = `15:04`
)

var ConstRoles = struct {
	Admin   int
	Cashier int
	Doctor  int
	Nurse   int
}{
	Admin:   1,
	Cashier: 2,
	Doctor:  3,
	Nurse:   4,
}

var ConstReceptionStatuses = struct {
	Open   string
	Closed string
}{
	Open:   "OPEN",
	Closed: "CLOSED",
}
