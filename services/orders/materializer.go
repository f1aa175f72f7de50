package orders

import (
	"context"
	"mime"
	"os"
	"path/filepath"
	"strings"

	goimap "github.com/emersion/go-imap"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/orderstack/orderstack/dto"
	"github.com/orderstack/orderstack/internal/models"
	"github.com/orderstack/orderstack/internal/tracing"
	"github.com/orderstack/orderstack/interfaces"
	"github.com/orderstack/orderstack/services/classifier"
	"github.com/orderstack/orderstack/services/spreadsheet"
)

// attachmentPart is one body part selected for download.
type attachmentPart struct {
	ref      interfaces.PartRef
	filename string
}

// materializeMessage downloads every spreadsheet attachment of one
// message, classifies it, and writes it under the job folder. The
// onAttachment callback reports fractional progress within the message.
func (s *Service) materializeMessage(
	ctx context.Context,
	session interfaces.MailboxSession,
	msg *goimap.Message,
	sender *models.Sender,
	jobRoot string,
	onAttachment func(done, total int),
) ([]dto.FetchedFile, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Service.materializeMessage")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("uid", msg.Uid)

	parts := collectAttachmentParts(msg.BodyStructure)
	span.SetTag("attachments", len(parts))

	var fetched []dto.FetchedFile
	for i, part := range parts {
		data, err := session.DownloadPart(ctx, msg.Uid, part.ref)
		if err != nil {
			tracing.TraceErr(span, err)
			return fetched, err
		}

		classification, err := classifier.Classify(data, part.filename, sender)
		if err != nil {
			tracing.TraceErr(span, err)
			return fetched, err
		}

		target := attachmentPath(jobRoot, classification, part.filename)
		if err := writeAttachment(target, data); err != nil {
			tracing.TraceErr(span, err)
			return fetched, err
		}

		fetched = append(fetched, dto.FetchedFile{
			Filename: part.filename,
			Supplier: classification.SupplierFolder(),
			Company:  sender.CompanyName,
			City:     classification.CityFolder(),
		})

		if onAttachment != nil {
			onAttachment(i+1, len(parts))
		}
	}

	return fetched, nil
}

// collectAttachmentParts walks the body-structure tree in order and
// keeps parts with attachment disposition and a spreadsheet filename.
// Everything else is skipped silently.
func collectAttachmentParts(bs *goimap.BodyStructure) []attachmentPart {
	var parts []attachmentPart
	if bs == nil {
		return parts
	}

	var walk func(node *goimap.BodyStructure, path []int)
	walk = func(node *goimap.BodyStructure, path []int) {
		if len(node.Parts) > 0 {
			for i, child := range node.Parts {
				walk(child, append(append([]int{}, path...), i+1))
			}
			return
		}

		if !strings.EqualFold(node.Disposition, "attachment") {
			return
		}
		filename := partFilename(node)
		if filename == "" {
			return
		}
		if _, ok := spreadsheet.FormatFromFilename(filename); !ok {
			return
		}

		// a single-part message body is addressed as part 1
		if len(path) == 0 {
			path = []int{1}
		}
		parts = append(parts, attachmentPart{
			ref:      interfaces.PartRef{Path: path, Encoding: node.Encoding},
			filename: filename,
		})
	}
	walk(bs, nil)

	return parts
}

// partFilename pulls the attachment filename from the disposition
// parameters, falling back to the content-type name, and decodes
// RFC 2047 encoded words.
func partFilename(bs *goimap.BodyStructure) string {
	var raw string
	for key, value := range bs.DispositionParams {
		if strings.EqualFold(key, "filename") {
			raw = value
			break
		}
	}
	if raw == "" {
		for key, value := range bs.Params {
			if strings.EqualFold(key, "name") {
				raw = value
				break
			}
		}
	}
	if raw == "" {
		return ""
	}

	decoder := new(mime.WordDecoder)
	if decoded, err := decoder.DecodeHeader(raw); err == nil {
		return decoded
	}
	return raw
}

// attachmentPath computes the destination for a classified attachment.
// Pure path computation; the I/O happens in writeAttachment.
func attachmentPath(jobRoot string, c classifier.Classification, filename string) string {
	return filepath.Join(jobRoot, c.SupplierFolder(), c.CityFolder(), filepath.Base(filename))
}

func writeAttachment(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating folder for %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}
