package launcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-veledger/flags"
	"github.com/rony4d/go-veledger/httpapi"
	"github.com/rony4d/go-veledger/integration"
	"github.com/rony4d/go-veledger/inter"
)

// verifyInterval is how often serve re-derives the supply from the records.
const verifyInterval = time.Minute

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// openRuntime loads the configuration, sets up logging and assembles the
// ledger. The caller closes the runtime.
func openRuntime(ctx *cli.Context, reg prometheus.Registerer) (*integration.Runtime, Config, *logrus.Logger, error) {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return nil, Config{}, nil, err
	}
	log, err := SetupLogging(cfg.Logging, ctx.App.ErrWriter)
	if err != nil {
		return nil, Config{}, nil, err
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	icfg, err := cfg.integrationConfig(reg, log.WithField("node", cfg.Node.Name))
	if err != nil {
		return nil, Config{}, nil, err
	}
	rt, err := integration.Assemble(icfg)
	if err != nil {
		return nil, Config{}, nil, err
	}
	return rt, cfg, log, nil
}

func serve(ctx *cli.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rt, cfg, log, err := openRuntime(ctx, reg)
	if err != nil {
		return err
	}
	defer rt.Close()

	hcfg := cfg.httpConfig()
	hcfg.Rules = rt.Rules
	hcfg.Metrics = rt.Metrics
	hcfg.Logger = log.WithField("module", "httpapi")
	if cfg.Metrics.Enable {
		hcfg.Gatherer = reg
	}
	srv := httpapi.New(rt.Ledger, hcfg)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start()
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)

	ticker := time.NewTicker(verifyInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-errc:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case sig := <-sigc:
			log.WithField("signal", sig.String()).Info("Got interrupt, shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			err := srv.Shutdown(sctx)
			cancel()
			return err
		case <-ticker.C:
			if err := rt.Ledger.Verify(); err != nil {
				log.WithError(err).Error("Locked supply does not match lock records")
			}
		}
	}
}

func fund(ctx *cli.Context) error {
	account, err := accountArg(ctx)
	if err != nil {
		return err
	}
	amount, err := amountArg(ctx)
	if err != nil {
		return err
	}
	rt, _, _, err := openRuntime(ctx, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	if _, err := rt.Gateway.ApplyGenesis(map[common.Address]*big.Int{account: amount}); err != nil {
		return err
	}
	return printJSON(ctx, map[string]interface{}{
		"account": account,
		"balance": (*hexutil.Big)(rt.Gateway.BalanceOf(account)),
	})
}

func lock(ctx *cli.Context) error {
	account, err := accountArg(ctx)
	if err != nil {
		return err
	}
	amount, err := amountArg(ctx)
	if err != nil {
		return err
	}
	now := nowArg(ctx)
	unlock := inter.Timestamp(ctx.Uint64(flags.UnlockFlag))
	if unlock == 0 {
		d := ctx.Duration(flags.DurationFlag)
		if d <= 0 {
			return fmt.Errorf("one of --%s or --%s is required", flags.UnlockFlag, flags.DurationFlag)
		}
		unlock = now + inter.Timestamp(d/time.Second)
	}

	rt, _, _, err := openRuntime(ctx, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	snap, err := rt.Ledger.CreateLock(context.Background(), account, amount, unlock, now)
	if err != nil {
		return err
	}
	return printJSON(ctx, map[string]interface{}{
		"account": account,
		"lock":    rt.Ledger.LockedBalanceOf(account),
		"before":  (*hexutil.Big)(snap.Before),
		"after":   (*hexutil.Big)(snap.After),
	})
}

func withdraw(ctx *cli.Context) error {
	account, err := accountArg(ctx)
	if err != nil {
		return err
	}
	rt, _, _, err := openRuntime(ctx, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	snap, err := rt.Ledger.Withdraw(context.Background(), account, nowArg(ctx))
	if err != nil {
		return err
	}
	return printJSON(ctx, map[string]interface{}{
		"account": account,
		"balance": (*hexutil.Big)(rt.Gateway.BalanceOf(account)),
		"before":  (*hexutil.Big)(snap.Before),
		"after":   (*hexutil.Big)(snap.After),
	})
}

func balance(ctx *cli.Context) error {
	account, err := accountArg(ctx)
	if err != nil {
		return err
	}
	rt, _, _, err := openRuntime(ctx, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	return printJSON(ctx, map[string]interface{}{
		"account": account,
		"lock":    rt.Ledger.LockedBalanceOf(account),
		"balance": (*hexutil.Big)(rt.Gateway.BalanceOf(account)),
	})
}

func supply(ctx *cli.Context) error {
	rt, _, _, err := openRuntime(ctx, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	return printJSON(ctx, map[string]interface{}{
		"supply":      (*hexutil.Big)(rt.Ledger.TotalLocked()),
		"activeLocks": rt.Ledger.ActiveLocks(),
		"custody":     rt.Gateway.Custody(),
		"held":        (*hexutil.Big)(rt.Gateway.CustodyBalance()),
	})
}

func printRules(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	icfg, err := cfg.integrationConfig(nil, nil)
	if err != nil {
		return err
	}
	return printJSON(ctx, icfg.Rules)
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}
	_, err = ctx.App.Writer.Write(out)
	return err
}

func accountArg(ctx *cli.Context) (common.Address, error) {
	raw := ctx.String(flags.AccountFlag)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid --%s %q", flags.AccountFlag, raw)
	}
	return common.HexToAddress(raw), nil
}

func amountArg(ctx *cli.Context) (*big.Int, error) {
	raw := ctx.String(flags.AmountFlag)
	amount, ok := math.ParseBig256(raw)
	if !ok || raw == "" {
		return nil, fmt.Errorf("invalid --%s %q", flags.AmountFlag, raw)
	}
	return amount, nil
}

func nowArg(ctx *cli.Context) inter.Timestamp {
	if ts := ctx.Uint64(flags.NowFlag); ts != 0 {
		return inter.Timestamp(ts)
	}
	return inter.FromTime(time.Now())
}

func printJSON(ctx *cli.Context, v interface{}) error {
	enc := json.NewEncoder(ctx.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
