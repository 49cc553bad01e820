// Package model содержит доменные сущности конвейера скриптендрука.
package model

import "time"

// ColorMode описывает режим печати заказа.
type ColorMode string

const (
	ColorMono  ColorMode = "sw"
	ColorColor ColorMode = "farbig"
)

// BindingMode описывает запрошенный вариант переплёта.
type BindingMode string

const (
	BindingBound  BindingMode = "bindung"
	BindingNone   BindingMode = "ohne"
	BindingFolder BindingMode = "schnellhefter"
)

// CostClass описывает ценовой класс кольцевого переплёта.
type CostClass string

const (
	CostClassNone  CostClass = "none"
	CostClassSmall CostClass = "small"
	CostClassLarge CostClass = "large"
)

// OrderStatus описывает стадию обработки заказа конечным автоматом.
type OrderStatus string

const (
	StatusReceived     OrderStatus = "RECEIVED"
	StatusNameParsed   OrderStatus = "NAME_PARSED"
	StatusUserResolved OrderStatus = "USER_RESOLVED"
	StatusAnalyzed     OrderStatus = "ANALYZED"
	StatusPriced       OrderStatus = "PRICED"
	StatusAssembled    OrderStatus = "ASSEMBLED"
	StatusPlaced       OrderStatus = "PLACED"
	StatusRejected     OrderStatus = "REJECTED"
)

// RejectReason описывает причину отклонения заказа.
type RejectReason string

const (
	ReasonMalformedName       RejectReason = "MALFORMED_NAME"
	ReasonUnknownColorToken   RejectReason = "UNKNOWN_COLOR_TOKEN"
	ReasonUnknownBindingToken RejectReason = "UNKNOWN_BINDING_TOKEN"
	ReasonInvalidOwnerID      RejectReason = "INVALID_OWNER_ID"
	ReasonUserNotFound        RejectReason = "USER_NOT_FOUND"
	ReasonUserBlocked         RejectReason = "USER_BLOCKED"
	ReasonPasswordProtected   RejectReason = "PASSWORD_PROTECTED"
	ReasonUnreadableDocument  RejectReason = "UNREADABLE_DOCUMENT"
	ReasonEmptyDocument       RejectReason = "EMPTY_DOCUMENT"
	ReasonTooManyPages        RejectReason = "TOO_MANY_PAGES"
	ReasonAssemblyFailed      RejectReason = "ASSEMBLY_FAILED"
	ReasonPlacementFailed     RejectReason = "PLACEMENT_FAILED"
)

// OrderRequest содержит разобранные поля имени входного файла.
// Значение неизменяемо после разбора.
type OrderRequest struct {
	OwnerID    string
	Color      ColorMode
	Binding    BindingMode
	Sequence   string
	SourcePath string
}

// UserRecord описывает пользователя, найденного в справочной службе
// либо в локальной резервной таблице.
type UserRecord struct {
	OwnerID    string `json:"owner_id"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	OrgUnit    string `json:"org_unit"`
}

// FullName возвращает полное имя пользователя для титульного листа.
func (u *UserRecord) FullName() string {
	if u.GivenName == "" {
		return u.FamilyName
	}
	return u.GivenName + " " + u.FamilyName
}

// BindingTier описывает строку таблицы кольцевых переплётов.
type BindingTier struct {
	MinPages   int       `json:"min_pages"`
	MaxPages   int       `json:"max_pages"`
	DiameterMM float64   `json:"diameter_mm"`
	Class      CostClass `json:"cost_class"`
}

// PriceBreakdown содержит составляющие стоимости заказа в евро.
// Округление до центов выполняется один раз при вычислении Total.
type PriceBreakdown struct {
	PerPage      float64 `json:"per_page"`
	Binding      float64 `json:"binding"`
	Total        float64 `json:"total"`
	AfterDeposit float64 `json:"after_deposit"`
}

// Order представляет единицу работы конвейера: один входной файл,
// доведённый до терминального состояния.
type Order struct {
	ID       int64        `json:"id"`
	FileName string       `json:"file_name"`
	Request  OrderRequest `json:"request"`

	User              *UserRecord     `json:"user,omitempty"`
	PageCount         int             `json:"page_count"`
	PasswordProtected bool            `json:"password_protected"`
	Tier              *BindingTier    `json:"tier,omitempty"`
	Price             *PriceBreakdown `json:"price,omitempty"`

	Status        OrderStatus  `json:"status"`
	Reason        RejectReason `json:"reason,omitempty"`
	FailureDetail string       `json:"failure_detail,omitempty"`

	OutputPath     string `json:"output_path,omitempty"`
	BackupPath     string `json:"backup_path,omitempty"`
	QuarantinePath string `json:"quarantine_path,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Identity возвращает ключ идемпотентности заказа для хранилища.
func (o *Order) Identity() string {
	return o.Request.OwnerID + "/" + o.Request.Sequence + "/" + o.FileName
}

// IsRejected сообщает, завершился ли заказ отклонением.
func (o *Order) IsRejected() bool {
	return o.Status == StatusRejected
}

// Reject переводит заказ в терминальное состояние отклонения.
func (o *Order) Reject(reason RejectReason, detail string) {
	o.Status = StatusRejected
	o.Reason = reason
	o.FailureDetail = detail
}
