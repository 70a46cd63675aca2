package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/richard-senior/mcp/internal/logger"
	"github.com/richard-senior/mcp/pkg/mcp"
	"github.com/richard-senior/mcp/pkg/protocol"
)

// Calculator evaluates a simple "number operator number" expression.
// Adapted from the teacher's HandleCalculatorTool into an mcp.Tool closure.
func Calculator() mcp.Tool {
	return mcp.ToolFunc{
		Def: protocol.Tool{
			Name:        "calculator",
			Description: "A simple calculator that can perform basic arithmetic operations",
			InputSchema: protocol.InputSchema{
				Type: "object",
				Properties: map[string]protocol.SchemaProp{
					"expression": {
						Type:        "string",
						Description: "A simple arithmetic expression with spaces between the numbers and the operator, such as 2 + 2 or 4 * 6",
					},
				},
				Required: []string{"expression"},
			},
		},
		Run: func(ctx context.Context, args map[string]any) (*protocol.ToolResult, error) {
			expression, _ := args["expression"].(string)
			if expression == "" {
				return nil, fmt.Errorf("expression parameter is required and must be a string")
			}
			logger.Debug("calculator evaluating:", expression)
			result, err := calculateResult(expression)
			if err != nil {
				return protocol.ErrorToolResult(err.Error()), nil
			}
			return &protocol.ToolResult{Content: []protocol.ContentItem{
				protocol.TextContent(fmt.Sprintf("%g", result)),
			}}, nil
		},
	}
}

// calculateResult performs a simple calculation based on the input
// expression, supporting exactly the "number operator number" shape the
// teacher's calculator tool understood.
func calculateResult(expression string) (float64, error) {
	expression = strings.TrimSpace(expression)
	parts := strings.Fields(expression)
	if len(parts) != 3 {
		return 0, fmt.Errorf("expression must be in format 'number operator number'")
	}

	num1, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid first number: %w", err)
	}
	operator := parts[1]
	num2, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid second number: %w", err)
	}

	switch operator {
	case "+":
		return num1 + num2, nil
	case "-":
		return num1 - num2, nil
	case "*":
		return num1 * num2, nil
	case "/":
		if num2 == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return num1 / num2, nil
	default:
		return 0, fmt.Errorf("unsupported operator %q", operator)
	}
}
