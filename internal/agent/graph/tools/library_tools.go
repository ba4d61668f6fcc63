package tools

import (
	"context"
	"encoding/json"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/library-assistant-poc/server/internal/agent/catalog"
	"github.com/library-assistant-poc/server/internal/agent/library"
	"github.com/library-assistant-poc/server/internal/agent/model"
)

const (
	ToolGreeting                = "greeting"
	ToolCheckUserAuthentication = "check_user_authentication"
	ToolBookData                = "book_data"
	ToolCheckBookAvailability   = "check_book_availability"
	ToolSearchBook              = "search_book_tool"

	// NoSessionUserMessage is returned by identity tools when the turn carries no user.
	NoSessionUserMessage = "❌ No user is attached to this session."
)

// BookNameInput is shared by the lookup tools.
type BookNameInput struct {
	BookName string `json:"book_name"`
}

type noInput struct{}

var bookNameParams = schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
	"book_name": {
		Type:     schema.String,
		Desc:     "Exact title of the book, e.g. Python Programming. Matching ignores case.",
		Required: true,
	},
})

// ===================================
// Identity tools
// ===================================

func createGreetingTool() tool.BaseTool {
	return newTextTool(
		&schema.ToolInfo{
			Name: ToolGreeting,
			Desc: "A simple greeting function. Greets the current user by name.",
		},
		func(ctx context.Context, _ noInput) string {
			user, ok := model.UserFromContext(ctx)
			if !ok {
				return NoSessionUserMessage
			}
			return library.Greet(user)
		},
	)
}

func createCheckUserAuthenticationTool() tool.BaseTool {
	return newTextTool(
		&schema.ToolInfo{
			Name: ToolCheckUserAuthentication,
			Desc: "Check if the user is authenticated based on the session's user details.",
		},
		func(ctx context.Context, _ noInput) string {
			user, ok := model.UserFromContext(ctx)
			if !ok {
				return NoSessionUserMessage
			}
			return library.Authenticate(user)
		},
	)
}

// ===================================
// Catalog tools
// ===================================

func createBookDataTool() tool.BaseTool {
	return newTextTool(
		&schema.ToolInfo{
			Name: ToolBookData,
			Desc: "Return the book's data: every book in the library with its id and number of copies.",
		},
		func(_ context.Context, _ noInput) string {
			b, err := json.Marshal(catalog.ListBooks())
			if err != nil {
				return "❌ The book list is unavailable right now."
			}
			return string(b)
		},
	)
}

func createCheckBookAvailabilityTool() tool.BaseTool {
	return newTextTool(
		&schema.ToolInfo{
			Name:        ToolCheckBookAvailability,
			Desc:        "Check how many copies of a book are available. Use it when the user asks about copies or stock of a book.",
			ParamsOneOf: bookNameParams,
		},
		func(_ context.Context, in BookNameInput) string {
			return library.CheckAvailability(in.BookName)
		},
	)
}

func createSearchBookTool() tool.BaseTool {
	return newTextTool(
		&schema.ToolInfo{
			Name:        ToolSearchBook,
			Desc:        "Search for a book in the library database. Use it when the user asks whether the library has a book.",
			ParamsOneOf: bookNameParams,
		},
		func(_ context.Context, in BookNameInput) string {
			return library.SearchBook(in.BookName)
		},
	)
}
