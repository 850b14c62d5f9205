package legacy

// ServiceType is a row of servicetypes.
type ServiceType struct {
	ID   int
	Name string
}

// OpeningTimeDay is a row of openingtimedays.
type OpeningTimeDay struct {
	ID   int
	Name string
}

// Disposition is a row of dispositions.
type Disposition struct {
	ID     int
	Name   string
	DXCode *string
}

// DayBankHoliday is the openingtimedays name used for public holidays.
const DayBankHoliday = "BankHoliday"

// Metadata is the reference data a transformer needs to resolve codes.
type Metadata struct {
	ServiceTypes    map[int]ServiceType
	OpeningTimeDays map[int]OpeningTimeDay
	Dispositions    map[int]Disposition
}
