// Command cartctl drives one widget session from the terminal against a
// running storefront API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"storefront-cart/internal/clients/storefront"
	"storefront-cart/internal/config"
	"storefront-cart/internal/domain"
	"storefront-cart/internal/logger"
	"storefront-cart/internal/storage"
	"storefront-cart/internal/widget"
)

type CLI struct {
	EnvFile  string `name:"env" help:"Optional .env file." placeholder:"FILE"`
	Visitor  string `default:"cli" help:"Visitor whose cart is used." env:"CARTCTL_VISITOR"`
	Upstream string `help:"Storefront API base URL, overrides STOREFRONT_BASE_URL." placeholder:"URL"`
	LogLevel string `default:"warn" help:"Log level." enum:"debug,info,warn,error"`

	Show     showCmd     `cmd:"" help:"Print the cart, catalog and totals." default:"1"`
	Add      addCmd      `cmd:"" help:"Add a catalog product to the cart."`
	Remove   removeCmd   `cmd:"" help:"Remove the cart line at an index."`
	Quote    quoteCmd    `cmd:"" help:"Quote shipping for a postal code, optionally selecting an option."`
	Checkout checkoutCmd `cmd:"" help:"Quote, select and submit the cart as an order."`
}

type showCmd struct{}

func (showCmd) Run(s *widget.Session) error {
	return printJSON(s.ReadModel())
}

type addCmd struct {
	ID       string `arg:"" help:"Product id."`
	Quantity int    `short:"q" default:"1" help:"Units to add."`
}

func (c addCmd) Run(ctx context.Context, s *widget.Session) error {
	id := domain.ProductID(c.ID)
	var product *domain.StockEntry
	for _, p := range s.ReadModel().Products {
		if p.ID == id {
			product = &domain.StockEntry{ID: p.ID, Name: p.Name, Price: p.Price}
			break
		}
	}
	if product == nil {
		return fmt.Errorf("product %s is not in the catalog", c.ID)
	}
	if err := s.AddItem(ctx, product.ID, product.Name, product.Price, c.Quantity); err != nil {
		return err
	}
	return printJSON(s.ReadModel())
}

type removeCmd struct {
	Index int `arg:"" help:"Zero-based cart line index."`
}

func (c removeCmd) Run(ctx context.Context, s *widget.Session) error {
	if err := s.RemoveItem(ctx, c.Index); err != nil {
		return err
	}
	return printJSON(s.ReadModel())
}

type quoteCmd struct {
	PostalCode string `arg:"" help:"Destination postal code."`
	Select     *int   `help:"Option index to select after quoting."`
}

func (c quoteCmd) Run(ctx context.Context, s *widget.Session) error {
	snap, err := s.RequestQuote(ctx, c.PostalCode)
	if err != nil {
		return err
	}
	if c.Select != nil {
		if _, err := s.SelectShipping(*c.Select); err != nil {
			return err
		}
		return printJSON(s.ReadModel())
	}
	return printJSON(snap)
}

type checkoutCmd struct {
	PostalCode string `required:"" help:"Destination postal code."`
	Option     int    `default:"0" help:"Shipping option index."`
	Name       string `required:"" help:"Customer name."`
	Email      string `required:"" help:"Customer email."`
	Phone      string `help:"Customer phone."`
	Address    string `help:"Delivery address."`
	DryRun     bool   `help:"Print the checkout form instead of submitting it."`
}

func (c checkoutCmd) Run(ctx context.Context, s *widget.Session, client *storefront.Client) error {
	if _, err := s.RequestQuote(ctx, c.PostalCode); err != nil {
		return err
	}
	if _, err := s.SelectShipping(c.Option); err != nil {
		return err
	}
	form, err := s.Handoff().FormValues()
	if err != nil {
		return err
	}
	form.Set("nombre", c.Name)
	form.Set("email", c.Email)
	form.Set("telefono", c.Phone)
	form.Set("direccion", c.Address)
	form.Set("cp", c.PostalCode)
	if c.DryRun {
		return printJSON(form)
	}
	placed, err := client.SubmitCheckout(ctx, form)
	if err != nil {
		return err
	}
	return printJSON(placed)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("cartctl"),
		kong.Description("Drive a storefront cart session from the terminal."),
		kong.ShortUsageOnError(),
		kong.HelpOptions{Compact: true},
	)

	cfg, err := config.Load(cli.EnvFile)
	kctx.FatalIfErrorf(err)
	if cli.Upstream != "" {
		cfg.Upstream.BaseURL = cli.Upstream
	}
	log, err := logger.New(cli.LogLevel)
	kctx.FatalIfErrorf(err)
	defer log.Sync() //nolint:errcheck

	ctx := context.Background()
	store, err := storage.Open(ctx, cfg.Storage, log.Named("storage"))
	kctx.FatalIfErrorf(err)
	defer store.Close()

	client := storefront.NewClient(cfg.Upstream)
	session := widget.NewSession(
		storage.WithNamespace(store, "visitor:"+cli.Visitor),
		client,
		widget.Options{JustAddedFor: cfg.Widget.JustAddedFor},
		log.Named("session").With(zap.String("visitor_id", cli.Visitor)),
	)
	session.Start(ctx)
	defer session.Close()
	if err := session.RefreshCatalog(ctx); err != nil {
		log.Warn("catalog refresh failed", zap.Error(err))
	}

	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.Bind(session, client)
	kctx.FatalIfErrorf(kctx.Run())
}
