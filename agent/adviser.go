package agent

import (
	"context"

	"github.com/etnz/cgtcalc"
	"github.com/etnz/cgtcalc/renderer"
	"google.golang.org/genai"
)

const model = "gemini-2.5-pro"

// creates the facilitator
func newFacilitator(experts ...*Expert) *Expert {
	return &Expert{
		Name:      "Facilitator",
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(experts)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			As a facilitator you are in charge of the conversation and solving the user's request.

			Learn about the expert's skill that you can get from the Tools to ask them questions.
			They are at your service and 100% dedicated to you, they keep context of your previous questions.

			The user has just computed his UK capital gains tax report and wants to understand it:
			which disposals were taxed, under which share matching rule, and what ends up on the
			self assessment form. Ask the experts before answering anything about his figures.
		`}}},
		},
		Library: NewLibrary(experts),
	}
}

// NewAdviser returns the tax adviser expert. It answers questions about the
// given report, reading the rendered summary and the calculation trail
// through its tools.
func NewAdviser(report *cgtcalc.CapitalGainsReport) *Expert {
	lib := []Function{reportFunc(report), auditFunc(report)}

	return &Expert{
		Name: "Adviser",
		Description: `This is the tax adviser. He has access to the user's capital gains report
		for the tax year and to the full calculation trail showing how every disposal was
		matched under the HMRC share matching rules.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(lib)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
				You are a UK capital gains tax adviser. You know the HMRC share matching rules:
				same day, bed and breakfast (30 days) and Section 104 pooling.

				Use the available tools to read the user's report and its calculation trail, and
				ground every figure you quote in them. You explain but never invent numbers.
			`}}},
		},
		Library: NewLibrary(lib),
	}
}

func reportFunc(report *cgtcalc.CapitalGainsReport) *Func {
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name: "Report",
			Description: `Report returns the capital gains report for the tax year: portfolio at
			year end, number of disposals, proceeds, allowable costs, gains, losses, allowance
			and taxable gain, plus dividend and interest income.`,
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "The markdown-formatted capital gains report.",
			},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			return &genai.FunctionResponse{
				ID:   id,
				Name: "Report",
				Response: map[string]any{
					"output": renderer.ReportMarkdown(report),
				},
			}
		},
	}
}

func auditFunc(report *cgtcalc.CapitalGainsReport) *Func {
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name: "CalculationTrail",
			Description: `CalculationTrail returns the full audit trail of the calculation: for
			every day with activity, the acquisitions and disposals and the quantity slices
			matched under each share matching rule with their gain.`,
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "The markdown-formatted calculation trail.",
			},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			return &genai.FunctionResponse{
				ID:   id,
				Name: "CalculationTrail",
				Response: map[string]any{
					"output": renderer.AuditMarkdown(report),
				},
			}
		},
	}
}
