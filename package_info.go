// Package attracker is the main package of the analytics tracker.
//
// A Tracker turns screens, gestures, media playback and e-commerce actions into hits, sends them
// to the collector, and keeps undeliverable hits in offline storage until they can be sent.
//
//	tracker, err := attracker.New(attracker.Config{
//	    ConfigProvider: atconfig.Static(map[string]string{
//	        "log": "logp", "domain": "xiti.com", "site": "123456",
//	    }),
//	})
//	if err != nil {
//	    return err
//	}
//	defer tracker.Close()
//	tracker.Screens().Add("home").SendView()
package attracker
