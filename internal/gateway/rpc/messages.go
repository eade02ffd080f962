package rpc

import "nexus/internal/types"

const ServiceName = "nexus.v1.NexusService"

const (
	DiagnoseProcedure        = "/" + ServiceName + "/Diagnose"
	SimulateProcedure        = "/" + ServiceName + "/Simulate"
	ArchitectProcedure       = "/" + ServiceName + "/Architect"
	CapabilitiesProcedure    = "/" + ServiceName + "/Capabilities"
	InquireProcedure         = "/" + ServiceName + "/Inquire"
	EconomicDataProcedure    = "/" + ServiceName + "/EconomicData"
	RefineObjectiveProcedure = "/" + ServiceName + "/RefineObjective"
	ChatProcedure            = "/" + ServiceName + "/Chat"
	ReportProcedure          = "/" + ServiceName + "/Report"
	LetterProcedure          = "/" + ServiceName + "/Letter"
)

type DiagnoseRequest struct {
	Region    string `json:"region"`
	Objective string `json:"objective,omitempty"`
}

type SimulateRequest struct {
	RROI         types.DiagnosticResult `json:"rroi"`
	Intervention string                 `json:"intervention"`
}

type ArchitectRequest struct {
	RROI      types.DiagnosticResult `json:"rroi"`
	Objective string                 `json:"objective"`
}

type Empty struct{}

type EconomicDataRequest struct {
	Country string `json:"country"`
}

type RefineObjectiveRequest struct {
	Objective    string             `json:"objective"`
	EconomicData types.EconomicData `json:"economicData"`
}

type ChatRequest struct {
	Context types.ChatContext   `json:"context"`
	History []types.ChatMessage `json:"history"`
}

// TextChunk carries free text: one fragment of a stream, or a whole
// unary reply.
type TextChunk struct {
	Text string `json:"text"`
}
