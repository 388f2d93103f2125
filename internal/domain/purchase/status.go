package purchase

type Status string

const (
	StatusCreated  Status = "created"
	StatusPaid     Status = "paid"
	StatusRefunded Status = "refunded"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusPaid, StatusRefunded:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}
