package orders

import (
	"testing"

	goimap "github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderstack/orderstack/services/classifier"
)

func TestCollectAttachmentParts_NestedMultipart(t *testing.T) {
	bs := &goimap.BodyStructure{
		MIMEType:    "multipart",
		MIMESubType: "mixed",
		Parts: []*goimap.BodyStructure{
			{
				MIMEType:    "multipart",
				MIMESubType: "alternative",
				Parts: []*goimap.BodyStructure{
					{MIMEType: "text", MIMESubType: "plain"},
					{MIMEType: "text", MIMESubType: "html"},
				},
			},
			{
				MIMEType:          "application",
				MIMESubType:       "vnd.ms-excel",
				Disposition:       "attachment",
				DispositionParams: map[string]string{"filename": "orders.xls"},
				Encoding:          "base64",
			},
			{
				MIMEType:          "application",
				MIMESubType:       "pdf",
				Disposition:       "attachment",
				DispositionParams: map[string]string{"filename": "invoice.pdf"},
			},
		},
	}

	parts := collectAttachmentParts(bs)
	require.Len(t, parts, 1)
	assert.Equal(t, "orders.xls", parts[0].filename)
	assert.Equal(t, []int{2}, parts[0].ref.Path)
	assert.Equal(t, "base64", parts[0].ref.Encoding)
}

func TestCollectAttachmentParts_DeepPath(t *testing.T) {
	bs := &goimap.BodyStructure{
		MIMEType: "multipart",
		Parts: []*goimap.BodyStructure{
			{MIMEType: "text", MIMESubType: "plain"},
			{
				MIMEType: "multipart",
				Parts: []*goimap.BodyStructure{
					{MIMEType: "text", MIMESubType: "plain"},
					{
						MIMEType:          "application",
						MIMESubType:       "octet-stream",
						Disposition:       "attachment",
						DispositionParams: map[string]string{"filename": "orders.xlsx"},
					},
				},
			},
		},
	}

	parts := collectAttachmentParts(bs)
	require.Len(t, parts, 1)
	assert.Equal(t, []int{2, 2}, parts[0].ref.Path)
}

func TestCollectAttachmentParts_SinglePartMessage(t *testing.T) {
	bs := &goimap.BodyStructure{
		MIMEType:          "application",
		MIMESubType:       "vnd.ms-excel",
		Disposition:       "attachment",
		DispositionParams: map[string]string{"filename": "orders.xls"},
	}

	parts := collectAttachmentParts(bs)
	require.Len(t, parts, 1)
	assert.Equal(t, []int{1}, parts[0].ref.Path)
}

func TestCollectAttachmentParts_InlineIsSkipped(t *testing.T) {
	bs := &goimap.BodyStructure{
		MIMEType:    "multipart",
		MIMESubType: "mixed",
		Parts: []*goimap.BodyStructure{
			{
				MIMEType:          "application",
				MIMESubType:       "vnd.ms-excel",
				Disposition:       "inline",
				DispositionParams: map[string]string{"filename": "orders.xls"},
			},
		},
	}

	assert.Empty(t, collectAttachmentParts(bs))
}

func TestPartFilename_Fallbacks(t *testing.T) {
	withDisposition := &goimap.BodyStructure{
		DispositionParams: map[string]string{"FILENAME": "orders.xlsx"},
	}
	assert.Equal(t, "orders.xlsx", partFilename(withDisposition))

	withName := &goimap.BodyStructure{
		Params: map[string]string{"name": "orders.xls"},
	}
	assert.Equal(t, "orders.xls", partFilename(withName))

	encoded := &goimap.BodyStructure{
		DispositionParams: map[string]string{"filename": "=?utf-8?B?0LfQsNC60LDQty54bHN4?="},
	}
	assert.Equal(t, "заказ.xlsx", partFilename(encoded))

	assert.Empty(t, partFilename(&goimap.BodyStructure{}))
}

func TestAttachmentPath_StripsDirectoryComponents(t *testing.T) {
	c := classifier.Classification{
		City:     classifier.Resolution{Resolved: true, Value: "Almaty"},
		Supplier: classifier.Resolution{Resolved: true, Value: "FoodCo"},
	}
	path := attachmentPath("/tmp/job", c, "../../etc/orders.xlsx")
	assert.Equal(t, "/tmp/job/FoodCo/Almaty/orders.xlsx", path)
}
