package address

import "errors"

// ErrNotFound is returned when an address book entry does not exist for the user.
var ErrNotFound = errors.New("address not found")

// Address is an entry of a user's address book.
type Address struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"userId"`
	Consignee    string `json:"consignee"`
	Phone        string `json:"phone"`
	ProvinceName string `json:"provinceName"`
	CityName     string `json:"cityName"`
	DistrictName string `json:"districtName"`
	Detail       string `json:"detail"`
}

// Snapshot is the copy of delivery details frozen into an order at submission.
type Snapshot struct {
	Consignee string `json:"consignee"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// Snapshot copies the delivery details of the address.
func (a Address) Snapshot() Snapshot {
	return Snapshot{
		Consignee: a.Consignee,
		Phone:     a.Phone,
		Address:   a.ProvinceName + a.CityName + a.DistrictName + a.Detail,
	}
}
