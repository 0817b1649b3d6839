// Command bridgecore boots the Ledger, LockerRegistry, and BurnRouter
// against simulated Relay/Oracle/native-asset collaborators, the same
// split the teacher's cmd/server_cmd uses for its etherman.SimulatedChain
// path. It is a wiring/demo entry point, not an RPC or CLI surface — those
// are explicitly out of scope (spec.md §1).
package main

import (
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/btcpeg/peg-core/bridgecfg"
	"github.com/btcpeg/peg-core/bridgeevents"
	"github.com/btcpeg/peg-core/burnrouter"
	"github.com/btcpeg/peg-core/common"
	"github.com/btcpeg/peg-core/ledger"
	"github.com/btcpeg/peg-core/logconfig"
	"github.com/btcpeg/peg-core/oracle"
	"github.com/btcpeg/peg-core/registry"
	"github.com/btcpeg/peg-core/relay"
)

const envConfigFile = "BRIDGE_CONFIG"

func main() {
	logconfig.ConfigProductionLogger()

	viper.AutomaticEnv()
	if path := viper.GetString(envConfigFile); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Printf("bridgecore: could not read config file %s: %v\n", path, err)
			return
		}
	}

	cfg := bridgecfg.LoadFromViper()

	ledgerAddr := ethcommon.HexToAddress("0x1000000000000000000000000000000000000001")
	registryAddr := ethcommon.HexToAddress("0x1000000000000000000000000000000000000002")
	routerAddr := ethcommon.HexToAddress("0x1000000000000000000000000000000000000003")
	cfg.CoreBTCAddress = ledgerAddr
	cfg.LockersAddress = registryAddr
	if cfg.Owner == (ethcommon.Address{}) {
		cfg.Owner = ethcommon.HexToAddress("0x1000000000000000000000000000000000000000")
	}

	bus := bridgeevents.NewBus(cfg.ChannelSize)

	ledg, err := ledger.New(cfg.Owner, cfg.MaxMintLimit, cfg.EpochLength, nil, bus)
	if err != nil {
		fmt.Printf("bridgecore: failed to start ledger: %v\n", err)
		return
	}

	orc := oracle.NewSimulated()
	native := registry.NewSimulatedNative()

	reg, err := registry.New(registryAddr, cfg.Owner, cfg, ledg, orc, native, nil, bus)
	if err != nil {
		fmt.Printf("bridgecore: failed to start registry: %v\n", err)
		return
	}

	finalizationParameter := uint64(6)
	rel := relay.NewSimulated(finalizationParameter)

	router, err := burnrouter.New(routerAddr, cfg.Owner, cfg, ledg, reg, rel, nil, bus)
	if err != nil {
		fmt.Printf("bridgecore: failed to start burn router: %v\n", err)
		return
	}

	if err := ledg.AddMinter(cfg.Owner, registryAddr); err != nil {
		fmt.Printf("bridgecore: failed to register registry as ledger minter: %v\n", err)
		return
	}
	if err := ledg.AddBurner(cfg.Owner, registryAddr); err != nil {
		fmt.Printf("bridgecore: failed to register registry as ledger burner: %v\n", err)
		return
	}
	if err := ledg.AddBurner(cfg.Owner, routerAddr); err != nil {
		fmt.Printf("bridgecore: failed to register router as ledger burner: %v\n", err)
		return
	}
	if err := reg.SetRouter(cfg.Owner, routerAddr); err != nil {
		fmt.Printf("bridgecore: failed to register burn router with registry: %v\n", err)
		return
	}
	// CcBurn pulls a burning user's funds into the Router's own account and
	// then calls Registry.Burn(routerAddr, ...), which does
	// ledger.TransferFrom(registryAddr, routerAddr, registryAddr, remaining)
	// on the Router's behalf. That needs a standing routerAddr -> registryAddr
	// allowance, so the Router grants it once, here, at wiring time.
	if err := ledg.Approve(routerAddr, registryAddr, common.MaxUint256); err != nil {
		fmt.Printf("bridgecore: failed to approve registry to pull router funds: %v\n", err)
		return
	}
	_ = router // constructed for its side effects; RPC/CLI wiring onto it is out of scope

	fmt.Printf("bridgecore: ledger=%s registry=%s router=%s owner=%s\n", ledgerAddr, registryAddr, routerAddr, cfg.Owner)
	fmt.Println("bridgecore: components wired; this process is a demo harness, not a server")
}
