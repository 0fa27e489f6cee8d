package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gridpulse/gridpulse/pkg/log"
	"github.com/gridpulse/gridpulse/pkg/types"
)

// warningsEnvelope is the warning feed's XML envelope. The transport status is
// always 200; the real status lives in responseMetadata. A single warning
// arrives as one bare <item>, which decodes to a one-element slice.
type warningsEnvelope struct {
	XMLName  xml.Name `xml:"response"`
	Metadata struct {
		HTTPCode int `xml:"httpCode"`
	} `xml:"responseMetadata"`
	Body struct {
		List struct {
			Items []warningItem `xml:"item"`
		} `xml:"responseList"`
	} `xml:"responseBody"`
}

type warningItem struct {
	WarningType   string `xml:"warningType"`
	PublishedDate string `xml:"publishedDate"`
	Text          string `xml:"text"`
}

// margin-stress warning types that should surface as the current warning
var marginWarningTypes = map[string]bool{
	"ELECTRICITY MARGIN NOTICE": true,
	"CAPACITY MARKET NOTICE":    true,
}

// GetSystemWarnings returns the published grid warnings, newest first, plus
// the first margin-stress warning that hasn't been cancelled by a later
// publication.
func (c *Client) GetSystemWarnings(ctx context.Context) (*types.SystemWarnings, error) {
	res, err := c.get(ctx, c.slowClient, upstreamWarnings, c.warningsURL, nil)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(upstreamWarnings, res, false); err != nil {
		return nil, err
	}

	var env warningsEnvelope
	if err := xml.Unmarshal(res.body, &env); err != nil {
		return nil, &UnexpectedDataError{Source: upstreamWarnings, Reason: fmt.Sprintf("undecodable envelope: %v", err)}
	}
	if env.Metadata.HTTPCode != 200 {
		return nil, &UnexpectedStatusCodeError{Source: upstreamWarnings, StatusCode: env.Metadata.HTTPCode}
	}

	warnings := &types.SystemWarnings{}
	cancelled := make(map[string]bool)
	for _, item := range env.Body.List.Items {
		w := types.SystemWarning{
			WarningType: strings.TrimSpace(item.WarningType),
			Text:        strings.TrimSpace(item.Text),
		}
		if t, err := parseTimestamp(item.PublishedDate); err == nil {
			w.PublishTime = t
		} else {
			log.Ctx(ctx).WarnContext(ctx, "failed to parse warning publish time",
				slog.String("value", item.PublishedDate),
				slog.Any("error", err),
			)
		}
		warnings.Warnings = append(warnings.Warnings, w)

		// items are newest first; a cancellation retires every older warning
		// of the same type
		warningType := strings.ToUpper(w.WarningType)
		if strings.HasPrefix(strings.ToUpper(w.Text), "CANCELLATION") {
			cancelled[warningType] = true
			continue
		}
		if warnings.CurrentWarning == nil && marginWarningTypes[warningType] && !cancelled[warningType] {
			warning := w
			warnings.CurrentWarning = &warning
		}
	}

	log.Ctx(ctx).DebugContext(ctx, "got system warnings",
		slog.Int("count", len(warnings.Warnings)),
		slog.Bool("marginWarningActive", warnings.CurrentWarning != nil),
	)
	return warnings, nil
}
