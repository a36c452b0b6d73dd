package rpc

// registerAllMethods registers every RPC method. Called by NewServer.
func (s *Server) registerAllMethods() {
	// Server methods
	s.registry.Register("server_info", handlerFunc{RoleGuest, s.serverInfo})
	s.registry.Register("ping", handlerFunc{RoleGuest, s.ping})
	s.registry.Register("account_info", handlerFunc{RoleGuest, s.accountInfo})

	// Offer queries
	s.registry.Register("get_offer", handlerFunc{RoleGuest, s.getOffer})
	s.registry.Register("quote", handlerFunc{RoleGuest, s.quote})
	s.registry.Register("list_offers", handlerFunc{RoleGuest, s.listOffers})
	s.registry.Register("offer_history", handlerFunc{RoleGuest, s.offerHistory})
	s.registry.Register("recent_events", handlerFunc{RoleGuest, s.recentEvents})
	s.registry.Register("fee_config", handlerFunc{RoleGuest, s.feeConfig})

	// Signed marketplace operations
	s.registry.Register("create_offer", handlerFunc{RoleSigned, s.createOffer})
	s.registry.Register("cancel_offer", handlerFunc{RoleSigned, s.cancelOffer})
	s.registry.Register("buy_with_native", handlerFunc{RoleSigned, s.buyWithNative})
	s.registry.Register("buy_with_token", handlerFunc{RoleSigned, s.buyWithToken})
	s.registry.Register("set_fee_rate", handlerFunc{RoleSigned, s.setFeeRate})
	s.registry.Register("set_recipient", handlerFunc{RoleSigned, s.setRecipient})

	// Standalone ledger administration
	s.registry.Register("ledger_fund", handlerFunc{RoleStandalone, s.ledgerFund})
	s.registry.Register("ledger_mint", handlerFunc{RoleStandalone, s.ledgerMint})
	s.registry.Register("ledger_approve", handlerFunc{RoleStandalone, s.ledgerApprove})
	s.registry.Register("ledger_set_operator", handlerFunc{RoleStandalone, s.ledgerSetOperator})
	s.registry.Register("ledger_balances", handlerFunc{RoleStandalone, s.ledgerBalances})
}
