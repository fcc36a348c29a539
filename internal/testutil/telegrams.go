// Package testutil holds sample telegrams shared by package tests.
package testutil

import (
	"strings"

	"github.com/NotCoffee418/p1_meter/pkg/types"
)

// Frame joins lines with CRLF the way meters send them.
func Frame(lines ...string) types.RawTelegram {
	return types.RawTelegram(strings.Join(lines, "\r\n") + "\r\n")
}

// DSMR 5.0 telegram with a valid CRC.
var DSMR50Lines = []string{
	`/Ene5\T210-D ESMR5.0`,
	``,
	`1-3:0.2.8(50)`,
	`0-0:1.0.0(200411171526S)`,
	`0-0:96.1.1(4530303438303030303235313238343138)`,
	`1-0:1.8.1(004486.031*kWh)`,
	`1-0:1.8.2(002272.913*kWh)`,
	`1-0:2.8.1(000732.442*kWh)`,
	`1-0:2.8.2(001838.277*kWh)`,
	`0-0:96.14.0(0001)`,
	`1-0:1.7.0(00.000*kW)`,
	`1-0:2.7.0(02.403*kW)`,
	`0-0:96.7.21(00673)`,
	`0-0:96.7.9(00006)`,
	`1-0:99.97.0(1)(0-0:96.7.19)(180806173744S)(0000000737*s)`,
	`1-0:32.32.0(00002)`,
	`1-0:52.32.0(00002)`,
	`1-0:72.32.0(00002)`,
	`1-0:32.36.0(00000)`,
	`1-0:52.36.0(00000)`,
	`1-0:72.36.0(00000)`,
	`0-0:96.13.0()`,
	`1-0:32.7.0(235.0*V)`,
	`1-0:52.7.0(233.0*V)`,
	`1-0:72.7.0(238.0*V)`,
	`1-0:31.7.0(003*A)`,
	`1-0:51.7.0(003*A)`,
	`1-0:71.7.0(004*A)`,
	`1-0:21.7.0(00.000*kW)`,
	`1-0:41.7.0(00.000*kW)`,
	`1-0:61.7.0(00.000*kW)`,
	`1-0:22.7.0(00.768*kW)`,
	`1-0:42.7.0(00.699*kW)`,
	`1-0:62.7.0(00.935*kW)`,
	`0-1:24.1.0(003)`,
	`0-1:96.1.0(4730303538353330303337363337333139)`,
	`0-1:24.2.1(200411171500S)(00889.906*m3)`,
	`!5C2B`,
}

// DSMR 4.2 telegram without checksum, two outage log entries and a hex message.
var DSMR42Lines = []string{
	`/ISk5\2MT382-1000`,
	``,
	`1-3:0.2.8(42)`,
	`0-0:1.0.0(101209113020W)`,
	`0-0:96.1.1(4B384547303034303436333935353037)`,
	`1-0:1.8.1(123456.789*kWh)`,
	`1-0:1.8.2(123456.789*kWh)`,
	`1-0:2.8.1(123456.789*kWh)`,
	`1-0:2.8.2(123456.789*kWh)`,
	`0-0:96.14.0(0002)`,
	`1-0:1.7.0(00.653*kW)`,
	`1-0:2.7.0(00.000*kW)`,
	`0-0:17.0.0(016.1*kW)`,
	`0-0:96.3.10(1)`,
	`0-0:96.7.21(00004)`,
	`0-0:96.7.9(00002)`,
	`1-0:99.97.0(2)(0-0:96.7.19)(101208152415W)(0000000240*s)(101208151004W)(0000000301*s)`,
	`1-0:32.32.0(00002)`,
	`1-0:52.32.0(00001)`,
	`1-0:72.32.0(00000)`,
	`1-0:32.36.0(00000)`,
	`1-0:52.36.0(00003)`,
	`1-0:72.36.0(00000)`,
	`0-0:96.13.1(3031)`,
	`0-0:96.13.0(48656C6C6F)`,
	`1-0:31.7.0(001*A)`,
	`1-0:21.7.0(00.653*kW)`,
	`1-0:22.7.0(00.000*kW)`,
	`0-1:24.1.0(03)`,
	`0-1:96.1.0(3232323241424344313233343536373839)`,
	`0-1:24.2.1(101209110000W)(12785.123*m3)`,
	`0-1:24.4.0(1)`,
	`!`,
}

// DSMR 2.2 telegram with the gas volume on a continuation line.
var DSMR22Lines = []string{
	`/KFM5KAIFA-METER`,
	``,
	`0-0:96.1.1(4B414C37303035303739313737)`,
	`1-0:1.8.1(00185.000*kWh)`,
	`1-0:1.8.2(00084.000*kWh)`,
	`1-0:2.8.1(00013.000*kWh)`,
	`1-0:2.8.2(00019.000*kWh)`,
	`0-0:96.14.0(0001)`,
	`1-0:1.7.0(0000.98*kW)`,
	`1-0:2.7.0(0000.00*kW)`,
	`0-0:17.0.0(999*A)`,
	`0-0:96.3.10(1)`,
	`0-0:96.13.1()`,
	`0-0:96.13.0()`,
	`0-1:24.1.0(3)`,
	`0-1:96.1.0(3238303131303031333132343930323133)`,
	`0-1:24.3.0(121030140000)(00)(60)(1)(0-1:24.2.1)(m3)`,
	`(00000.142)`,
	`0-1:24.4.0(1)`,
	`!`,
}

func DSMR50() types.RawTelegram { return Frame(DSMR50Lines...) }
func DSMR42() types.RawTelegram { return Frame(DSMR42Lines...) }
func DSMR22() types.RawTelegram { return Frame(DSMR22Lines...) }
