package content

import (
	"context"
	"fmt"
	"sync"

	"github.com/ignite/outreach-tracker/internal/domain"
	"github.com/osteele/liquid"
)

// Built-in templates used when the owner has none for the stage.
var builtinTemplates = map[domain.Stage]string{
	domain.StageOutreach: `Subject: Quick idea for {{ recipient.company | default: "your team" }}
Hi {{ recipient.first_name | default: "there" }},

I'm {{ sender.name }}, {{ sender.position }} at {{ sender.company }}.{% if sender.company_description != "" %} {{ sender.company_description }}{% endif %}

I'd love to show you how we could help {{ recipient.company | default: "your team" }}. Would you be open to a short call next week?`,

	domain.StageFollowup: `Subject: Re: {{ previous.subject }}
Hi {{ recipient.first_name | default: "there" }},

I wanted to follow up on my note from last week. Is this something worth a quick conversation for {{ recipient.company | default: "your team" }}?`,

	domain.StageLastchance: `Subject: Closing the loop: {{ previous.subject }}
Hi {{ recipient.first_name | default: "there" }},

I haven't heard back, so this will be my last note on the topic. If the timing is ever right, just reply and I'll pick it up from there.`,
}

// TemplateProvider renders liquid templates with the recipient, sender and
// previous email as variables.
type TemplateProvider struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

func NewTemplateProvider() *TemplateProvider {
	engine := liquid.NewEngine()
	engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if s, ok := value.(string); value == nil || (ok && s == "") {
			return defaultVal
		}
		return value
	})
	return &TemplateProvider{engine: engine}
}

// Generate renders req.Template, or the built-in template for the stage.
func (p *TemplateProvider) Generate(_ context.Context, req domain.DraftRequest) (domain.Content, error) {
	src, key := builtinTemplates[req.Stage], "builtin:"+string(req.Stage)
	if req.Template != nil && req.Template.Content != "" {
		src, key = req.Template.Content, fmt.Sprintf("template:%d:%s", req.Template.ID, req.Template.Content)
	}
	if src == "" {
		return domain.Content{}, fmt.Errorf("%w: no template for stage %q", domain.ErrInvalidStage, req.Stage)
	}

	tpl, err := p.parse(key, src)
	if err != nil {
		return domain.Content{}, err
	}
	out, rerr := tpl.RenderString(bindings(req))
	if rerr != nil {
		return domain.Content{}, fmt.Errorf("render template: %w", rerr)
	}
	return Finish(out, req), nil
}

func (p *TemplateProvider) parse(key, src string) (*liquid.Template, error) {
	if cached, ok := p.cache.Load(key); ok {
		return cached.(*liquid.Template), nil
	}
	tpl, err := p.engine.ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	p.cache.Store(key, tpl)
	return tpl, nil
}

func bindings(req domain.DraftRequest) map[string]interface{} {
	prev := map[string]interface{}{"subject": "", "body": ""}
	if req.Previous != nil {
		prev["subject"] = req.Previous.Subject
		prev["body"] = req.Previous.Body
	}
	return map[string]interface{}{
		"stage": string(req.Stage),
		"recipient": map[string]interface{}{
			"email":      req.Recipient.Email,
			"name":       req.Recipient.Name,
			"first_name": firstName(req.Recipient.Name),
			"company":    req.Recipient.Company,
			"title":      req.Recipient.Title,
			"website":    req.Recipient.Website,
		},
		"sender": map[string]interface{}{
			"name":                orPlaceholder(req.Owner.FullName, "[Your Name]"),
			"position":            orPlaceholder(req.Owner.Position, "[Your Position]"),
			"company":             orPlaceholder(req.Owner.CompanyName, "[Your Company]"),
			"company_description": req.Owner.CompanyDescription,
		},
		"previous": prev,
	}
}
