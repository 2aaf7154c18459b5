// Package mqtt connects VME Thermal to an MQTT broker.
//
// Report batches and per-sensor state are published under a per-crate topic
// tree, and calibration commands are received on it:
//
//	vmethermal/<crate>/report                 batch, JSON
//	vmethermal/<crate>/sensor/<address>       last record, JSON, retained
//	vmethermal/<crate>/command/calibrate/<address>
//	vmethermal/<crate>/status                 online/offline, retained (LWT)
//
// The client reconnects on its own and restores its subscriptions after a
// reconnect. Handlers run on paho's goroutines and must not block.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Crate.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().AllCalibrationCommands(), 1, handler)
package mqtt
