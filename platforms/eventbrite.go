package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"bitbucket.org/showbooker/booking_backend/models"
	"github.com/shopspring/decimal"
)

const eventbriteDefaultBaseURL = "https://www.eventbriteapi.com"

// Eventbrite exposes per-ticket-class sold/total counts on the event itself,
// so counts come from ticket_classes and money comes from placed orders.
type Eventbrite struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewEventbrite(creds Credentials, httpClient *http.Client) (*Eventbrite, error) {
	if creds.EventbriteToken == "" {
		return nil, fmt.Errorf("%s: %w", models.PlatformEventbrite, ErrCredentialMissing)
	}
	baseURL := creds.EventbriteBaseURL
	if baseURL == "" {
		baseURL = eventbriteDefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: creds.RequestTimeout}
	}
	return &Eventbrite{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   creds.EventbriteToken,
		http:    httpClient,
	}, nil
}

func (e *Eventbrite) Platform() string { return models.PlatformEventbrite }

type eventbriteEvent struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	TicketClasses []struct {
		Name          string `json:"name"`
		QuantityTotal int    `json:"quantity_total"`
		QuantitySold  int    `json:"quantity_sold"`
	} `json:"ticket_classes"`
}

type eventbriteMoney struct {
	MajorValue json.Number `json:"major_value"`
	Currency   string      `json:"currency"`
}

type eventbriteOrdersPage struct {
	Pagination struct {
		PageNumber   int  `json:"page_number"`
		PageCount    int  `json:"page_count"`
		HasMoreItems bool `json:"has_more_items"`
	} `json:"pagination"`
	Orders []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Costs  struct {
			Gross         eventbriteMoney `json:"gross"`
			EventbriteFee eventbriteMoney `json:"eventbrite_fee"`
			PaymentFee    eventbriteMoney `json:"payment_fee"`
		} `json:"costs"`
	} `json:"orders"`
}

func (e *Eventbrite) FetchSnapshot(ctx context.Context, externalEventID string) (Snapshot, error) {
	headers := map[string]string{"Authorization": "Bearer " + e.token}

	params := url.Values{}
	params.Set("expand", "ticket_classes")
	var event eventbriteEvent
	if err := getJSON(ctx, e.http, e.Platform(), e.baseURL+"/v3/events/"+url.PathEscape(externalEventID)+"/", params, headers, &event); err != nil {
		return Snapshot{}, err
	}
	if event.ID == "" {
		return Snapshot{}, &ProtocolError{Platform: e.Platform(), Reason: "event payload missing id"}
	}

	sold := 0
	available := 0
	for _, tc := range event.TicketClasses {
		sold += tc.QuantitySold
		remaining := tc.QuantityTotal - tc.QuantitySold
		if remaining > 0 {
			available += remaining
		}
	}

	orders := 0
	gross := decimal.Zero
	fees := decimal.Zero

	page := 1
	for {
		orderParams := url.Values{}
		// Only placed orders count toward revenue; refunds and pending
		// orders are excluded server-side.
		orderParams.Set("status", "placed")
		orderParams.Set("page", strconv.Itoa(page))

		var resp eventbriteOrdersPage
		if err := getJSON(ctx, e.http, e.Platform(), e.baseURL+"/v3/events/"+url.PathEscape(externalEventID)+"/orders/", orderParams, headers, &resp); err != nil {
			return Snapshot{}, err
		}

		for _, order := range resp.Orders {
			if !strings.EqualFold(strings.TrimSpace(order.Status), "placed") {
				continue
			}
			orders++
			gross = gross.Add(decimalFromNumber(order.Costs.Gross.MajorValue))
			fees = fees.Add(decimalFromNumber(order.Costs.EventbriteFee.MajorValue))
			fees = fees.Add(decimalFromNumber(order.Costs.PaymentFee.MajorValue))
		}

		if !resp.Pagination.HasMoreItems || (resp.Pagination.PageCount > 0 && page >= resp.Pagination.PageCount) {
			break
		}
		page++
	}

	return Snapshot{
		TicketsSold:      sold,
		TicketsAvailable: available,
		GrossRevenue:     gross,
		NetRevenue:       gross.Sub(fees),
		Fees:             fees,
		OrdersCount:      orders,
		URL:              event.URL,
	}, nil
}
