package domain

import "sort"

const (
	ColumnTitleID         = "titleid"
	ColumnLocationID      = "locationid"
	ColumnEmployeeTitle   = "employeetitle"
	ColumnAppointmentDate = "appointmentdate"
)

// LocationKeyColumns build the composite location key, in this order.
var LocationKeyColumns = []string{
	"customeraddress",
	"customercity",
	"customerstate",
	"customercountry",
	"billingpostalcode",
}

// Derivations maps each derived key column to the source columns it is built from.
var Derivations = map[string][]string{
	ColumnTitleID:    {ColumnEmployeeTitle},
	ColumnLocationID: LocationKeyColumns,
}

var catalog = []Definition{
	{Table: "hub_customers", Kind: KindHub, Keys: []string{"customerid"}},
	{Table: "hub_employees", Kind: KindHub, Keys: []string{"employeeid"}},
	{Table: "hub_invoices", Kind: KindHub, Keys: []string{"invoiceid"}},
	{Table: "hub_invoiceline", Kind: KindHub, Keys: []string{"invoicelineid"}},
	{Table: "hub_tracks", Kind: KindHub, Keys: []string{"trackid"}},
	{Table: "hub_titles", Kind: KindHub, Keys: []string{ColumnTitleID}},
	{Table: "hub_locations", Kind: KindHub, Keys: []string{ColumnLocationID}},

	{Table: "link_customerinvoice", Kind: KindLink, Keys: []string{"customerid", "invoiceid"}},
	{Table: "link_customerlocation", Kind: KindLink, Keys: []string{"customerid", ColumnLocationID}},
	{Table: "link_employeecustomer", Kind: KindLink, Keys: []string{"customerid", "employeeid"}},
	{Table: "link_employeeinvoice", Kind: KindLink, Keys: []string{"employeeid", "invoiceid"}},
	{Table: "link_employeelocation", Kind: KindLink, Keys: []string{"employeeid", ColumnLocationID}},
	{Table: "link_employeetitle", Kind: KindLink, Keys: []string{"employeeid", ColumnTitleID}, Relationship: ColumnAppointmentDate},
	{Table: "link_invoiceinvoiceline", Kind: KindLink, Keys: []string{"invoicelineid", "invoiceid"}},
	{Table: "link_invoicelinetrack", Kind: KindLink, Keys: []string{"invoicelineid", "trackid"}},

	{
		Table: "sat_customer", Kind: KindSatellite, Keys: []string{"customerid"}, HashKey: "customer_hashkey",
		Attributes: []string{"customerfirstname", "customerlastname", "customerphone", "customeremail"},
	},
	{
		Table: "sat_location", Kind: KindSatellite, Keys: []string{ColumnLocationID}, HashKey: "location_hashkey",
		Attributes: []string{
			"customeraddress", "customercity", "customerstate", "customercountry", "billingpostalcode",
			"billingaddress", "billingcity", "billingstate", "billingcountry",
			"employeeaddress", "employeecity", "employeestate", "employeecountry",
		},
	},
	{
		Table: "sat_employee", Kind: KindSatellite, Keys: []string{"employeeid"}, HashKey: "employee_hashkey",
		Attributes: []string{
			"employeefirstname", "employeelastname", "employeebirthdate", "employeehiredate",
			"employeephone", "employeeemail", "employeereportsto",
		},
	},
	{Table: "sat_invoice", Kind: KindSatellite, Keys: []string{"invoiceid"}, HashKey: "invoice_hashkey", Attributes: []string{"invoicedate"}},
	{Table: "sat_invoiceline", Kind: KindSatellite, Keys: []string{"invoicelineid"}, HashKey: "invoiceline_hashkey", Attributes: []string{"quantity"}},
	{Table: "sat_track", Kind: KindSatellite, Keys: []string{"trackid"}, HashKey: "track_hashkey", Attributes: []string{"unitprice"}},
	{Table: "sat_title", Kind: KindSatellite, Keys: []string{ColumnTitleID}, HashKey: "title_hashkey", Attributes: []string{ColumnEmployeeTitle}},
}

// Catalog returns a copy of the target table definitions in declaration order.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	for i, d := range catalog {
		d.Keys = append([]string(nil), d.Keys...)
		d.Attributes = append([]string(nil), d.Attributes...)
		out[i] = d
	}
	return out
}

// Lookup returns the definition for table.
func Lookup(table string) (Definition, bool) {
	for _, d := range Catalog() {
		if d.Table == table {
			return d, true
		}
	}
	return Definition{}, false
}

// ExpectedColumns is every source-facing column referenced by defs, sorted.
// Relationship attributes and hashkeys are generated at load time and excluded.
func ExpectedColumns(defs []Definition) []string {
	seen := map[string]struct{}{}
	for _, d := range defs {
		for _, col := range d.Keys {
			seen[col] = struct{}{}
		}
		for _, col := range d.Attributes {
			seen[col] = struct{}{}
		}
	}
	for derived, sources := range Derivations {
		if _, ok := seen[derived]; !ok {
			continue
		}
		for _, col := range sources {
			seen[col] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for col := range seen {
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}
