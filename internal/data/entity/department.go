package entity

type Department string

const (
	DepartmentElectricity Department = "ELECTRICITY"
	DepartmentWater       Department = "WATER"
	DepartmentGas         Department = "GAS"
	DepartmentMunicipal   Department = "MUNICIPAL"
	DepartmentTransport   Department = "TRANSPORT"
	DepartmentPDS         Department = "PDS"
)

var Departments = []Department{
	DepartmentElectricity,
	DepartmentWater,
	DepartmentGas,
	DepartmentMunicipal,
	DepartmentTransport,
	DepartmentPDS,
}

var departmentTables = map[Department]string{
	DepartmentElectricity: "electricity",
	DepartmentWater:       "water",
	DepartmentGas:         "gas",
	DepartmentMunicipal:   "municipal",
	DepartmentTransport:   "transport",
	DepartmentPDS:         "pds",
}

func (d Department) Valid() bool {
	_, ok := departmentTables[d]
	return ok
}

// BillsTable and PaymentsTable only ever return names from the fixed table
// above, so they are safe to interpolate into SQL.
func (d Department) BillsTable() string {
	return departmentTables[d] + "_bills"
}

func (d Department) PaymentsTable() string {
	return departmentTables[d] + "_payments"
}
