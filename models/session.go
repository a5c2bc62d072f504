package models

// Session holds the parameters of one port-forward tunnel instance.
type Session struct {
	ID               string `json:"id"`
	Password         string `json:"password"`
	IsSharedPassword bool   `json:"isSharedPassword"`
	IsRDP            bool   `json:"isRDP"`
	ForceRelay       bool   `json:"forceRelay"`
	ConnToken        string `json:"connToken"`
}

// Geometry is a persisted window position and size.
type Geometry struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}
