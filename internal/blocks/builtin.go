// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package blocks

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
)

//go:embed templates/*.html
var templateFS embed.FS

var blockTemplates = template.Must(
	template.New("blocks").
		Funcs(template.FuncMap{"markdown": RenderMarkdown}).
		ParseFS(templateFS, "templates/*.html"),
)

// HeroProps is the top-of-page banner.
type HeroProps struct {
	Title           string `json:"title" validate:"required,max=120"`
	Subtitle        string `json:"subtitle,omitempty" validate:"max=300"`
	BackgroundImage string `json:"background_image,omitempty" validate:"omitempty,url"`
	CTALabel        string `json:"cta_label,omitempty" validate:"max=40"`
	CTAHref         string `json:"cta_href,omitempty" validate:"required_with=CTALabel,max=500"`
	Alignment       string `json:"alignment,omitempty" validate:"oneof=left center right"`
}

func (p *HeroProps) applyDefaults() {
	if p.Alignment == "" {
		p.Alignment = "center"
	}
}

// TextProps is a markdown section.
type TextProps struct {
	Heading string `json:"heading,omitempty" validate:"max=120"`
	Body    string `json:"body" validate:"required,max=20000"`
}

// FeatureItem is one entry of a features grid.
type FeatureItem struct {
	Title       string `json:"title" validate:"required,max=80"`
	Description string `json:"description,omitempty" validate:"max=400"`
	Icon        string `json:"icon,omitempty" validate:"max=40"`
}

// FeaturesProps is a grid highlighting what the centre offers.
type FeaturesProps struct {
	Heading string        `json:"heading,omitempty" validate:"max=120"`
	Columns int           `json:"columns,omitempty" validate:"oneof=2 3 4"`
	Items   []FeatureItem `json:"items" validate:"required,min=2,max=12,dive"`
}

func (p *FeaturesProps) applyDefaults() {
	if p.Columns == 0 {
		p.Columns = 3
	}
}

// CTAProps is the enrollment call to action.
type CTAProps struct {
	Heading     string `json:"heading" validate:"required,max=120"`
	Text        string `json:"text,omitempty" validate:"max=500"`
	ButtonLabel string `json:"button_label,omitempty" validate:"required,max=40"`
	ButtonHref  string `json:"button_href,omitempty" validate:"required,max=500"`
}

func (p *CTAProps) applyDefaults() {
	if p.ButtonLabel == "" {
		p.ButtonLabel = "Enrol now"
	}
	if p.ButtonHref == "" {
		p.ButtonHref = "/register"
	}
}

// GalleryImage is one gallery picture.
type GalleryImage struct {
	URL     string `json:"url" validate:"required,url"`
	Alt     string `json:"alt" validate:"required,max=200"`
	Caption string `json:"caption,omitempty" validate:"max=200"`
}

// GalleryProps is a picture grid.
type GalleryProps struct {
	Heading string         `json:"heading,omitempty" validate:"max=120"`
	Images  []GalleryImage `json:"images" validate:"required,min=1,max=48,dive"`
}

// Testimonial is a quote from a parent or guardian.
type Testimonial struct {
	Quote  string `json:"quote" validate:"required,max=600"`
	Author string `json:"author" validate:"required,max=100"`
	Role   string `json:"role,omitempty" validate:"max=100"`
}

// TestimonialsProps lists parent quotes.
type TestimonialsProps struct {
	Heading string        `json:"heading,omitempty" validate:"max=120"`
	Items   []Testimonial `json:"items" validate:"required,min=1,max=20,dive"`
}

// FAQItem is a question with a markdown answer.
type FAQItem struct {
	Question string `json:"question" validate:"required,max=200"`
	Answer   string `json:"answer" validate:"required,max=4000"`
}

// FAQProps lists frequently asked questions.
type FAQProps struct {
	Heading string    `json:"heading,omitempty" validate:"max=120"`
	Items   []FAQItem `json:"items" validate:"required,min=1,max=50,dive"`
}

// ContactProps shows how to reach the centre. At least one channel is required.
type ContactProps struct {
	Heading string `json:"heading,omitempty" validate:"max=120"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   string `json:"phone,omitempty" validate:"required_without_all=Email Address,max=40"`
	Address string `json:"address,omitempty" validate:"max=300"`
	Hours   string `json:"hours,omitempty" validate:"max=200"`
	MapURL  string `json:"map_url,omitempty" validate:"omitempty,url"`
}

func (p *ContactProps) applyDefaults() {
	if p.Heading == "" {
		p.Heading = "Contact us"
	}
}

func templateRenderer(name string) func(io.Writer, any) error {
	return func(w io.Writer, props any) error {
		return blockTemplates.ExecuteTemplate(w, name, props)
	}
}

// builtinDefinitions returns the built-in block catalogue.
func builtinDefinitions() []Definition {
	return []Definition{
		{
			Key: "hero", Name: "Hero banner", Category: CategoryLayout,
			Description: "Large heading with optional subtitle, background image and button.",
			NewProps:    func() any { return &HeroProps{} },
			RenderHTML:  templateRenderer("hero"),
		},
		{
			Key: "text", Name: "Text", Category: CategoryContent,
			Description: "Rich text section written in markdown.",
			NewProps:    func() any { return &TextProps{} },
			RenderHTML:  templateRenderer("text"),
		},
		{
			Key: "features", Name: "Features", Category: CategoryContent,
			Description: "Grid of programme highlights (two or more items).",
			NewProps:    func() any { return &FeaturesProps{} },
			RenderHTML:  templateRenderer("features"),
		},
		{
			Key: "cta", Name: "Enrollment call to action", Category: CategoryConvert,
			Description: "Prompt visitors to submit a registration request.",
			NewProps:    func() any { return &CTAProps{} },
			RenderHTML:  templateRenderer("cta"),
		},
		{
			Key: "gallery", Name: "Gallery", Category: CategoryMedia,
			Description: "Grid of photos with captions.",
			NewProps:    func() any { return &GalleryProps{} },
			RenderHTML:  templateRenderer("gallery"),
		},
		{
			Key: "testimonials", Name: "Testimonials", Category: CategoryContent,
			Description: "Quotes from parents and guardians.",
			NewProps:    func() any { return &TestimonialsProps{} },
			RenderHTML:  templateRenderer("testimonials"),
		},
		{
			Key: "faq", Name: "FAQ", Category: CategoryContent,
			Description: "Frequently asked questions with markdown answers.",
			NewProps:    func() any { return &FAQProps{} },
			RenderHTML:  templateRenderer("faq"),
		},
		{
			Key: "contact", Name: "Contact details", Category: CategoryConvert,
			Description: "Email, phone, address and opening hours.",
			NewProps:    func() any { return &ContactProps{} },
			RenderHTML:  templateRenderer("contact"),
		},
	}
}

// NewDefaultRegistry returns a registry holding the built-in blocks.
func NewDefaultRegistry(logger *slog.Logger) *Registry {
	r := NewRegistry(logger)
	for _, def := range builtinDefinitions() {
		if err := r.Register(def); err != nil {
			panic(fmt.Sprintf("registering built-in block: %v", err))
		}
	}
	return r
}
