package models

// Requests for the prediction HTTP endpoints. Defined in domain for
// consistency and reuse.

type PredictionRequest struct {
	Symbol  string `param:"symbol" json:"symbol" validate:"required"`
	Horizon int    `param:"horizon" json:"horizon" default:"1" validate:"oneof=1 7 30"`
}

type PredictionsRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required"`
}

type TrainingRequest struct {
	Symbol string `json:"symbol" validate:"required_without=All"`
	All    bool   `json:"all"`
}
