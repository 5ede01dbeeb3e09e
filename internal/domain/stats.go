package domain

// UserTypeSummary agrupa cuentas por tipo con su estado de verificacion.
type UserTypeSummary struct {
	UserType   UserType `json:"userType"`
	Count      int      `json:"count"`
	Verified   int      `json:"verified"`
	Unverified int      `json:"unverified"`
}

type ProviderCount struct {
	Provider string `json:"provider"`
	Count    int    `json:"count"`
}

// UserStats resume el estado del almacen de usuarios.
type UserStats struct {
	TotalUsers    int               `json:"totalUsers"`
	VerifiedUsers int               `json:"verifiedUsers"`
	ActiveUsers   int               `json:"activeUsers"`
	ByType        []UserTypeSummary `json:"byType"`
	BySocial      []ProviderCount   `json:"bySocialProvider"`
	Recent        []User            `json:"-"`
}
