package tools

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/driftwood-dev/codeagent/pkg/tool"
)

const maxWebContentBytes = 50 * 1024

type webFetchArgs struct {
	URL string `json:"url" jsonschema:"required,description=URL to fetch"`
}

// WebFetchTool fetches a URL, following redirects, and reduces any HTML
// response to plain text capped at 50 KiB.
type WebFetchTool struct{}

func (WebFetchTool) Name() string        { return "webfetch" }
func (WebFetchTool) Description() string { return "Fetch a URL and return its content as plain text." }
func (WebFetchTool) Schema() map[string]any {
	return generateSchema[webFetchArgs]()
}

func (WebFetchTool) Execute(ctx tool.Context, raw map[string]any) (tool.Result, error) {
	args, err := decodeArgs[webFetchArgs](raw)
	if err != nil {
		return errResult("Error: %v", err), nil
	}
	if args.URL == "" {
		return errResult("Error: url is required"), nil
	}
	return fetchAsText(ctx, args.URL)
}

type webSearchArgs struct {
	Query string `json:"query" jsonschema:"required,description=Search query"`
}

// WebSearchTool runs query through a search engine's HTML results page
// and reduces it the same way webfetch reduces any other page, since
// this agent has no dedicated search API credential to federate to.
type WebSearchTool struct{}

func (WebSearchTool) Name() string        { return "websearch" }
func (WebSearchTool) Description() string { return "Search the web and return result snippets as plain text." }
func (WebSearchTool) Schema() map[string]any {
	return generateSchema[webSearchArgs]()
}

func (WebSearchTool) Execute(ctx tool.Context, raw map[string]any) (tool.Result, error) {
	args, err := decodeArgs[webSearchArgs](raw)
	if err != nil {
		return errResult("Error: %v", err), nil
	}
	if args.Query == "" {
		return errResult("Error: query is required"), nil
	}
	searchURL := "https://html.duckduckgo.com/html/?q=" + url.QueryEscape(args.Query)
	return fetchAsText(ctx, searchURL)
}

func fetchAsText(ctx tool.Context, target string) (tool.Result, error) {
	req, err := http.NewRequestWithContext(ctx.Ctx, http.MethodGet, target, nil)
	if err != nil {
		return errResult("Error: invalid URL: %v", err), nil
	}
	req.Header.Set("User-Agent", "codeagent/1.0")

	client := httpFrom(ctx)
	resp, err := client.Do(req)
	if err != nil {
		return errResult("Error: request failed: %v", err), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errResult("Error: %s returned %s", target, resp.Status), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWebContentBytes*4))
	if err != nil {
		return errResult("Error: failed to read response: %v", err), nil
	}

	text := body
	if strings.Contains(resp.Header.Get("Content-Type"), "html") {
		text = []byte(htmlToText(string(body)))
	}
	if len(text) > maxWebContentBytes {
		text = text[:maxWebContentBytes]
	}
	return okResult(string(text)), nil
}

// htmlToText strips tags/script/style content from an HTML document,
// collapsing it into readable plain text via the streaming tokenizer
// rather than a DOM tree, since only the visible text is ever kept.
func htmlToText(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))
	var b strings.Builder
	skip := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return collapseWhitespace(b.String())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style", "noscript":
				if tt == html.StartTagToken {
					skip++
				}
			case "br", "p", "div", "li", "tr", "h1", "h2", "h3", "h4":
				b.WriteString("\n")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style", "noscript":
				if skip > 0 {
					skip--
				}
			case "p", "div", "li", "tr":
				b.WriteString("\n")
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteString(" ")
			}
		}
	}
}

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for _, line := range lines {
		trimmed := strings.Join(strings.Fields(line), " ")
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}
