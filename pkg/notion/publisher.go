package notion

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/linkmill/partners-cli/internal/model"
)

// Publisher creates one content page per research pack.
type Publisher struct {
	client    Client
	contentDB string
}

// NewPublisher creates a publisher targeting the given content database.
func NewPublisher(client Client, contentDB string) *Publisher {
	return &Publisher{client: client, contentDB: contentDB}
}

// PublishRun creates a page for each pack in the run and returns the
// number published. A single page failure does not stop the rest.
func (p *Publisher) PublishRun(ctx context.Context, run *model.Run) (int, error) {
	if len(run.Packs) == 0 {
		return 0, eris.New("notion: run has no packs to publish")
	}

	published := 0
	var firstErr error
	for _, pack := range run.Packs {
		if _, err := p.PublishPack(ctx, run.ProjectID, pack); err != nil {
			zap.L().Warn("notion publish failed",
				zap.String("project_id", run.ProjectID),
				zap.String("item_id", pack.ItemID),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		published++
	}

	if published == 0 {
		return 0, eris.Wrap(firstErr, "notion: all pages failed")
	}
	return published, nil
}

// PublishPack creates one page for a pack.
func (p *Publisher) PublishPack(ctx context.Context, projectID string, pack model.ResearchPack) (*notionapi.Page, error) {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: richText(pack.Title),
		},
		"MetaTitle": notionapi.RichTextProperty{
			RichText: richText(pack.MetaTitle),
		},
		"MetaDescription": notionapi.RichTextProperty{
			RichText: richText(pack.MetaDescription),
		},
		"Slug": notionapi.RichTextProperty{
			RichText: richText(pack.Slug),
		},
		"Price": notionapi.NumberProperty{
			Number: float64(pack.PriceKRW),
		},
		"Rocket": notionapi.CheckboxProperty{
			Checkbox: pack.IsRocket,
		},
		"ProjectID": notionapi.RichTextProperty{
			RichText: richText(projectID),
		},
	}
	if len(pack.Keywords) > 0 {
		var tags []notionapi.Option
		for _, k := range pack.Keywords {
			tags = append(tags, notionapi.Option{Name: k})
		}
		props["Keywords"] = notionapi.MultiSelectProperty{MultiSelect: tags}
	}

	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(p.contentDB),
		},
		Properties: props,
		Children:   packBlocks(pack),
	}

	page, err := p.client.CreatePage(ctx, req)
	if err != nil {
		return nil, eris.Wrapf(err, "notion: publish pack %s", pack.ItemID)
	}
	return page, nil
}

// packBlocks renders the pack body: features, pros/cons, and sources.
func packBlocks(pack model.ResearchPack) []notionapi.Block {
	var blocks []notionapi.Block

	if len(pack.Features) > 0 {
		blocks = append(blocks, heading("주요 기능"))
		blocks = append(blocks, bullets(pack.Features)...)
	}
	if len(pack.Pros) > 0 {
		blocks = append(blocks, heading("장점"))
		blocks = append(blocks, bullets(pack.Pros)...)
	}
	if len(pack.Cons) > 0 {
		blocks = append(blocks, heading("단점"))
		blocks = append(blocks, bullets(pack.Cons)...)
	}
	if len(pack.Sources) > 0 {
		blocks = append(blocks, heading("출처"))
		blocks = append(blocks, paragraph(strings.Join(pack.Sources, "\n")))
	}
	return blocks
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}}
}

func heading(s string) notionapi.Block {
	return &notionapi.Heading2Block{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeHeading2,
		},
		Heading2: notionapi.Heading{RichText: richText(s)},
	}
}

func paragraph(s string) notionapi.Block {
	return &notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeParagraph,
		},
		Paragraph: notionapi.Paragraph{RichText: richText(s)},
	}
}

func bullets(items []string) []notionapi.Block {
	var blocks []notionapi.Block
	for _, item := range items {
		blocks = append(blocks, &notionapi.BulletedListItemBlock{
			BasicBlock: notionapi.BasicBlock{
				Object: notionapi.ObjectTypeBlock,
				Type:   notionapi.BlockTypeBulletedListItem,
			},
			BulletedListItem: notionapi.ListItem{RichText: richText(item)},
		})
	}
	return blocks
}
