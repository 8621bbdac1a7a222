package trello

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/board"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/logger"
)

const defaultBaseURL = "https://api.trello.com/1"

// campos pedidos em toda leitura de card
const cardFields = "name,desc,idList,labels,due,closed,dateLastActivity,shortUrl"

// Config contém as credenciais e o quadro usado
type Config struct {
	Key     string
	Token   string
	BoardID string
	BaseURL string
}

// APIError é uma resposta não-2xx da API, com o corpo bruto para log
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("trello %s %s: status %d", e.Method, e.Path, e.Status)
}

// StatusCode permite que a política de retry classifique o erro
func (e *APIError) StatusCode() int { return e.Status }

// Client implementa board.Board sobre a API REST do Trello
type Client struct {
	cfg    Config
	http   *http.Client
	logger logger.Logger
}

// NewClient cria o cliente. httpClient nil usa um cliente com timeout de 15s.
func NewClient(cfg Config, httpClient *http.Client, log logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient, logger: log}
}

type apiLabel struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type apiCard struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Desc             string     `json:"desc"`
	IDList           string     `json:"idList"`
	Labels           []apiLabel `json:"labels"`
	Due              string     `json:"due"`
	Closed           bool       `json:"closed"`
	DateLastActivity string     `json:"dateLastActivity"`
	ShortURL         string     `json:"shortUrl"`
}

type apiList struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Closed bool      `json:"closed"`
	Cards  []apiCard `json:"cards"`
}

func (c apiCard) toDomain(listName string) board.Card {
	card := board.Card{
		ID:       c.ID,
		Name:     c.Name,
		Desc:     c.Desc,
		ListID:   c.IDList,
		ListName: listName,
		Closed:   c.Closed,
		URL:      c.ShortURL,
	}
	for _, l := range c.Labels {
		card.Labels = append(card.Labels, board.Label{ID: l.ID, Name: l.Name, Color: l.Color})
	}
	if t, err := time.Parse(time.RFC3339, c.Due); err == nil {
		card.Due = t
	}
	if t, err := time.Parse(time.RFC3339, c.DateLastActivity); err == nil {
		card.LastActivity = t
	} else if t, ok := CreatedAt(c.ID); ok {
		card.LastActivity = t
	}
	return card
}

func (l apiList) toDomain() board.List {
	list := board.List{ID: l.ID, Name: l.Name, Closed: l.Closed}
	for _, c := range l.Cards {
		list.Cards = append(list.Cards, c.toDomain(l.Name))
	}
	return list
}

// ListLists retorna as listas abertas do quadro com seus cards abertos
func (c *Client) ListLists(ctx context.Context) ([]board.List, error) {
	q := url.Values{}
	q.Set("cards", "open")
	q.Set("card_fields", cardFields)
	q.Set("filter", "open")

	var raw []apiList
	if err := c.do(ctx, http.MethodGet, "/boards/"+c.cfg.BoardID+"/lists", q, &raw); err != nil {
		return nil, err
	}
	lists := make([]board.List, 0, len(raw))
	for _, l := range raw {
		lists = append(lists, l.toDomain())
	}
	return lists, nil
}

// ListCards retorna todos os cards abertos já com o nome da lista
func (c *Client) ListCards(ctx context.Context) ([]board.Card, error) {
	lists, err := c.ListLists(ctx)
	if err != nil {
		return nil, err
	}
	var cards []board.Card
	for _, l := range lists {
		cards = append(cards, l.Cards...)
	}
	return cards, nil
}

func (c *Client) Labels(ctx context.Context) ([]board.Label, error) {
	var raw []apiLabel
	if err := c.do(ctx, http.MethodGet, "/boards/"+c.cfg.BoardID+"/labels", nil, &raw); err != nil {
		return nil, err
	}
	labels := make([]board.Label, 0, len(raw))
	for _, l := range raw {
		if l.Name == "" {
			continue
		}
		labels = append(labels, board.Label{ID: l.ID, Name: l.Name, Color: l.Color})
	}
	return labels, nil
}

func (c *Client) CreateCard(ctx context.Context, in board.CardInput) (board.Card, error) {
	q := url.Values{}
	q.Set("idList", in.ListID)
	q.Set("name", in.Name)
	if in.Desc != "" {
		q.Set("desc", in.Desc)
	}
	if !in.Due.IsZero() {
		q.Set("due", in.Due.UTC().Format(time.RFC3339))
	}
	if len(in.LabelIDs) > 0 {
		q.Set("idLabels", strings.Join(in.LabelIDs, ","))
	}

	var raw apiCard
	if err := c.do(ctx, http.MethodPost, "/cards", q, &raw); err != nil {
		return board.Card{}, err
	}
	return raw.toDomain(""), nil
}

func (c *Client) UpdateCard(ctx context.Context, id string, patch board.CardPatch) (board.Card, error) {
	q := url.Values{}
	if patch.Name != nil {
		q.Set("name", *patch.Name)
	}
	if patch.Desc != nil {
		q.Set("desc", *patch.Desc)
	}
	if patch.ListID != nil {
		q.Set("idList", *patch.ListID)
	}
	if patch.Due != nil {
		if patch.Due.IsZero() {
			q.Set("due", "null")
		} else {
			q.Set("due", patch.Due.UTC().Format(time.RFC3339))
		}
	}
	if patch.Closed != nil {
		q.Set("closed", strconv.FormatBool(*patch.Closed))
	}

	var raw apiCard
	if err := c.do(ctx, http.MethodPut, "/cards/"+id, q, &raw); err != nil {
		return board.Card{}, err
	}
	return raw.toDomain(""), nil
}

func (c *Client) DeleteCard(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/cards/"+id, nil, nil)
}

// Search usa a busca textual do Trello, que também encontra cards arquivados
func (c *Client) Search(ctx context.Context, query string) ([]board.Card, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("idBoards", c.cfg.BoardID)
	q.Set("modelTypes", "cards")
	q.Set("card_fields", cardFields)
	q.Set("cards_limit", "20")
	q.Set("partial", "true")

	var raw struct {
		Cards []apiCard `json:"cards"`
	}
	if err := c.do(ctx, http.MethodGet, "/search", q, &raw); err != nil {
		return nil, err
	}
	cards := make([]board.Card, 0, len(raw.Cards))
	for _, card := range raw.Cards {
		cards = append(cards, card.toDomain(""))
	}
	return cards, nil
}

func (c *Client) AddLabel(ctx context.Context, cardID, labelID string) error {
	q := url.Values{}
	q.Set("value", labelID)
	return c.do(ctx, http.MethodPost, "/cards/"+cardID+"/idLabels", q, nil)
}

// AddChecklist cria a checklist e adiciona os itens em ordem
func (c *Client) AddChecklist(ctx context.Context, cardID, name string, items []string) error {
	q := url.Values{}
	q.Set("name", name)

	var checklist struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/cards/"+cardID+"/checklists", q, &checklist); err != nil {
		return err
	}
	for _, item := range items {
		iq := url.Values{}
		iq.Set("name", item)
		iq.Set("pos", "bottom")
		if err := c.do(ctx, http.MethodPost, "/checklists/"+checklist.ID+"/checkItems", iq, nil); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) AddComment(ctx context.Context, cardID, text string) error {
	q := url.Values{}
	q.Set("text", text)
	return c.do(ctx, http.MethodPost, "/cards/"+cardID+"/actions/comments", q, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("key", c.cfg.Key)
	query.Set("token", c.cfg.Token)

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("erro ao criar requisição: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("erro ao ler resposta: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("Erro na API do Trello",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"body", string(body))
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: string(body)}
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("erro ao decodificar resposta do Trello: %w", err)
	}
	return nil
}
